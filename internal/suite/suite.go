// Package suite composes the action libraries into named scenarios and runs
// them against a ServeRest deployment.
package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wondertwin-ai/twin-serverest/internal/apiactions"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/uiactions"
)

// ErrExpectation marks a response that did not match what a scenario
// expected.
var ErrExpectation = errors.New("expectation failed")

// ErrNoBrowser is reported for UI scenarios run without a UI.
var ErrNoBrowser = errors.New("ui scenario needs a browser")

// Kind says which surface a scenario drives.
type Kind int

const (
	KindAPI Kind = iota
	KindUI
)

func (k Kind) String() string {
	if k == KindUI {
		return "ui"
	}
	return "api"
}

// Scenario is one independent end-to-end check.
type Scenario struct {
	Name string
	Kind Kind
	Run  func(ctx context.Context, env *Env) error
}

// Env is what a scenario runs against. UI is nil for API-only runs.
type Env struct {
	API    *apiactions.Client
	UI     *uiactions.UI
	Gen    *fixture.Generator
	Logger *slog.Logger

	mu    sync.Mutex
	admin *fixture.User
}

// Admin returns the run's shared admin, registering it over the API on
// first use. UI scenarios log in as this user so the session cache carries
// one login across them. A failed registration is retried on the next call.
func (e *Env) Admin(ctx context.Context) (fixture.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.admin != nil {
		return *e.admin, nil
	}
	u := e.Gen.User(true)
	if err := e.API.RegisterUser(ctx, u, true); err != nil {
		return fixture.User{}, err
	}
	e.admin = &u
	return u, nil
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Kind     Kind
	Duration time.Duration
	Err      error
	Skipped  bool
}

// Passed reports whether the scenario ran and succeeded.
func (r Result) Passed() bool { return !r.Skipped && r.Err == nil }

// Suite runs a fixed list of scenarios.
type Suite struct {
	scenarios []Scenario
	parallel  int
}

// Option configures a Suite.
type Option func(*Suite)

// WithParallel runs up to n API scenarios at once. UI scenarios always run
// one at a time since they share a browser context.
func WithParallel(n int) Option {
	return func(s *Suite) {
		if n > 0 {
			s.parallel = n
		}
	}
}

// New creates a Suite over scenarios.
func New(scenarios []Scenario, opts ...Option) *Suite {
	s := &Suite{scenarios: scenarios, parallel: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scenarios returns the suite's scenarios in run order.
func (s *Suite) Scenarios() []Scenario { return slices.Clone(s.scenarios) }

// Only keeps the scenarios whose names are listed. Unknown names are an
// error.
func (s *Suite) Only(names ...string) (*Suite, error) {
	if len(names) == 0 {
		return s, nil
	}
	var kept []Scenario
	for _, name := range names {
		i := slices.IndexFunc(s.scenarios, func(sc Scenario) bool { return sc.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		kept = append(kept, s.scenarios[i])
	}
	return &Suite{scenarios: kept, parallel: s.parallel}, nil
}

// Run executes every scenario and returns results in suite order. API
// scenarios run first, with the configured parallelism, then UI scenarios
// in sequence. A failing scenario does not stop the others.
func (s *Suite) Run(ctx context.Context, env *Env) []Result {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]Result, len(s.scenarios))

	var g errgroup.Group
	g.SetLimit(s.parallel)
	for i, sc := range s.scenarios {
		if sc.Kind != KindAPI {
			continue
		}
		g.Go(func() error {
			results[i] = runOne(ctx, env, logger, sc)
			return nil
		})
	}
	g.Wait()

	for i, sc := range s.scenarios {
		if sc.Kind != KindUI {
			continue
		}
		if env.UI == nil {
			results[i] = Result{Name: sc.Name, Kind: sc.Kind, Skipped: true, Err: ErrNoBrowser}
			logger.Info("scenario skipped", "scenario", sc.Name, "reason", "no browser")
			continue
		}
		results[i] = runOne(ctx, env, logger, sc)
	}
	return results
}

func runOne(ctx context.Context, env *Env, logger *slog.Logger, sc Scenario) Result {
	if err := ctx.Err(); err != nil {
		return Result{Name: sc.Name, Kind: sc.Kind, Skipped: true, Err: err}
	}
	start := time.Now()
	err := sc.Run(ctx, env)
	r := Result{Name: sc.Name, Kind: sc.Kind, Duration: time.Since(start), Err: err}
	if err != nil {
		logger.Error("scenario failed", "scenario", sc.Name, "kind", sc.Kind, "duration", r.Duration, "error", err)
	} else {
		logger.Info("scenario passed", "scenario", sc.Name, "kind", sc.Kind, "duration", r.Duration)
	}
	return r
}

// Failed counts results that ran and failed.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Skipped && r.Err != nil {
			n++
		}
	}
	return n
}
