package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wondertwin-ai/twin-serverest/internal/client"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
)

// StepResult records the outcome of a single step.
type StepResult struct {
	Name     string
	Passed   bool
	Status   int
	Duration time.Duration
	Error    string // empty when passed
}

// Result records the outcome of an entire scenario.
type Result struct {
	ScenarioName string
	Passed       bool
	Steps        []StepResult
	Duration     time.Duration
}

// Runner executes scenarios against one API. Steps after a failing step
// still run, but with whatever captures succeeded.
type Runner struct {
	apiURL   string
	frontURL string
	http     *http.Client
	admin    *client.AdminClient
	gen      *fixture.Generator
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithFrontURL sets the value of {{config.front_url}}.
func WithFrontURL(u string) Option { return func(r *Runner) { r.frontURL = u } }

// WithHTTPClient replaces the default 10-second client.
func WithHTTPClient(hc *http.Client) Option { return func(r *Runner) { r.http = hc } }

// WithGenerator sets the source of {{fake.*}} values.
func WithGenerator(g *fixture.Generator) Option { return func(r *Runner) { r.gen = g } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// NewRunner creates a Runner for the API at apiURL. Setup blocks use the
// same URL's /admin plane.
func NewRunner(apiURL string, opts ...Option) *Runner {
	apiURL = strings.TrimRight(apiURL, "/")
	r := &Runner{
		apiURL: apiURL,
		http:   &http.Client{Timeout: 10 * time.Second},
		admin:  client.New(apiURL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.gen == nil {
		r.gen = fixture.New(0)
	}
	return r
}

// Run executes a single scenario. Only setup failures are returned as
// errors; step failures are recorded in the result.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	start := time.Now()
	result := &Result{ScenarioName: s.Name, Passed: true}

	if s.Setup != nil {
		if err := r.setup(ctx, s.Setup); err != nil {
			return nil, fmt.Errorf("setup failed: %w", err)
		}
	}

	exp := &Expander{APIURL: r.apiURL, FrontURL: r.frontURL, Gen: r.gen, Vars: map[string]string{}}
	// Variables resolve once, in name order, so later ones may use earlier ones.
	for _, k := range sortedKeys(s.Variables) {
		v, err := exp.Expand(s.Variables[k])
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		exp.Vars[k] = v
	}

	for _, step := range s.Steps {
		sr := r.runStep(ctx, exp, &step)
		result.Steps = append(result.Steps, sr)
		if !sr.Passed {
			result.Passed = false
			r.logger.Warn("step failed", "scenario", s.Name, "step", step.Name, "error", sr.Error)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) setup(ctx context.Context, setup *Setup) error {
	if setup.Reset {
		if _, err := r.admin.Reset(ctx); err != nil {
			return err
		}
	}
	if setup.Seed != "" {
		if _, err := r.admin.Seed(ctx, setup.Seed); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, exp *Expander, step *Step) (sr StepResult) {
	start := time.Now()
	sr.Name = step.Name
	defer func() { sr.Duration = time.Since(start) }()

	resp, body, err := r.send(ctx, exp, &step.Request)
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	sr.Status = resp.StatusCode

	for _, name := range sortedKeys(step.Capture) {
		val, err := Extract(body, step.Capture[name])
		if err != nil {
			sr.Error = fmt.Sprintf("capture %q: %v", name, err)
			return sr
		}
		exp.Vars[name] = fmt.Sprint(val)
	}

	if step.Assert != nil {
		if err := r.check(exp, step.Assert, resp, body); err != nil {
			sr.Error = err.Error()
			return sr
		}
	}
	sr.Passed = true
	return sr
}

func (r *Runner) send(ctx context.Context, exp *Expander, sr *Request) (*http.Response, []byte, error) {
	path, err := exp.Expand(sr.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("template expansion in path: %w", err)
	}
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = r.apiURL + path
	}

	var reqBody io.Reader
	if sr.Body != nil {
		expanded, err := exp.expandValue(sr.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("template expansion in body: %w", err)
		}
		data, err := json.Marshal(expanded)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, sr.Method, url, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range sr.Headers {
		expanded, err := exp.Expand(v)
		if err != nil {
			return nil, nil, fmt.Errorf("template expansion in header %q: %w", k, err)
		}
		req.Header.Set(k, expanded)
	}
	if sr.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response body: %w", err)
	}
	r.logger.Debug("scenario request", "method", sr.Method, "url", url, "status", resp.StatusCode)
	return resp, body, nil
}

func (r *Runner) check(exp *Expander, a *Assert, resp *http.Response, body []byte) error {
	if a.Status != 0 && resp.StatusCode != a.Status {
		return fmt.Errorf("expected status %d, got %d: %s", a.Status, resp.StatusCode, bytes.TrimSpace(body))
	}
	if a.BodyContains != "" {
		want, err := exp.Expand(a.BodyContains)
		if err != nil {
			return err
		}
		if !bytes.Contains(body, []byte(want)) {
			return fmt.Errorf("body does not contain %q", want)
		}
	}
	for key, want := range a.Headers {
		if got := resp.Header.Get(key); got != want {
			return fmt.Errorf("header %q: expected %q, got %q", key, want, got)
		}
	}
	if len(a.Body) == 0 {
		return nil
	}
	expanded, err := exp.expandValue(a.Body)
	if err != nil {
		return fmt.Errorf("template expansion in assertion: %w", err)
	}
	return CheckBody(body, expanded.(map[string]any))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
