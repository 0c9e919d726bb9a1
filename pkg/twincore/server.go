// Package twincore provides the base HTTP server, CLI flags, middleware chain,
// and response helpers for the ServeRest twin.
package twincore

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Config holds the twin configuration, parsed from CLI flags.
type Config struct {
	Port      int
	Latency   time.Duration
	FailRate  float64
	SeedFile  string
	DataFile  string // SQLite file the state survives restarts in
	JWTSecret string
	TokenTTL  time.Duration
	Verbose   bool
	Name      string // twin name for logging
}

// ParseFlags parses the twin's CLI flags from args and returns a Config.
func ParseFlags(twinName string, args []string) (*Config, error) {
	cfg := &Config{Name: twinName}
	fs := flag.NewFlagSet(twinName, flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", 0, "HTTP listen port (default: $PORT or 3000)")
	fs.DurationVar(&cfg.Latency, "latency", 0, "Base simulated latency")
	fs.Float64Var(&cfg.FailRate, "fail-rate", 0.0, "Random failure rate 0.0-1.0")
	fs.StringVar(&cfg.SeedFile, "seed-file", "", "Path to JSON or YAML fixture for initial state")
	fs.StringVar(&cfg.DataFile, "data", "", "SQLite file used to keep state between runs")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "twin-serverest", "HMAC secret for issued tokens")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 600*time.Second, "Lifetime of issued tokens")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable request/response logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port == 0 {
		if p := os.Getenv("PORT"); p != "" {
			if _, err := fmt.Sscanf(p, "%d", &cfg.Port); err != nil {
				return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
			}
		}
	}
	if cfg.FailRate < 0 || cfg.FailRate > 1 {
		return nil, fmt.Errorf("fail-rate must be between 0.0 and 1.0")
	}
	return cfg, nil
}

// Twin is the base server. It wraps a chi router with the common middleware
// and provides lifecycle management.
type Twin struct {
	Config *Config
	Router *chi.Mux
	Logger *slog.Logger
	mw     *Middleware
	mu     sync.RWMutex // protects Config fields during runtime updates
}

// New creates a new Twin with the given config.
func New(cfg *Config) *Twin {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	r := chi.NewRouter()
	mw := NewMiddleware(cfg, logger)

	// Latency and failure middleware always mount; they check cfg before acting.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.CORS)
	r.Use(mw.RequestLog)
	r.Use(mw.LatencyInjection)
	r.Use(mw.RandomFailure)

	return &Twin{
		Config: cfg,
		Router: r,
		Logger: logger,
		mw:     mw,
	}
}

// Middleware returns the middleware instance (request log, fault registry).
func (t *Twin) Middleware() *Middleware {
	return t.mw
}

// GetConfig returns the current runtime configuration as a map.
func (t *Twin) GetConfig() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return map[string]any{
		"name":      t.Config.Name,
		"port":      t.Config.Port,
		"latency":   t.Config.Latency.String(),
		"fail_rate": t.Config.FailRate,
		"token_ttl": t.Config.TokenTTL.String(),
		"verbose":   t.Config.Verbose,
	}
}

// UpdateConfig updates runtime configuration fields from a map.
// Only latency, fail_rate, and verbose can change at runtime. All fields are
// validated before any are applied.
func (t *Twin) UpdateConfig(updates map[string]any) error {
	var (
		latency  *time.Duration
		failRate *float64
		verbose  *bool
	)

	for k, v := range updates {
		switch k {
		case "latency":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("latency must be a duration string")
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid latency duration: %w", err)
			}
			if d < 0 {
				return fmt.Errorf("latency must not be negative")
			}
			latency = &d
		case "fail_rate":
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("fail_rate must be a number")
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("fail_rate must be between 0.0 and 1.0")
			}
			failRate = &f
		case "verbose":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("verbose must be a boolean")
			}
			verbose = &b
		case "name", "port", "token_ttl":
			return fmt.Errorf("%s cannot be changed at runtime", k)
		default:
			return fmt.Errorf("unknown config key: %s", k)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if latency != nil {
		t.Config.Latency = *latency
	}
	if failRate != nil {
		t.Config.FailRate = *failRate
	}
	if verbose != nil {
		t.Config.Verbose = *verbose
	}
	return nil
}

// Serve starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (t *Twin) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", t.Config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      t.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		t.Logger.Info("starting twin", "name", t.Config.Name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	t.Logger.Info("shutting down twin", "name", t.Config.Name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP implements http.Handler so Twin can be used directly in tests.
func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Router.ServeHTTP(w, r)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Message is the body shape ServeRest uses for every non-listing response.
type Message struct {
	Message string `json:"message"`
	ID      string `json:"_id,omitempty"`
}

// Msg writes a 200 whose body is only a message, as ServeRest answers
// deletions and updates.
func Msg(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, Message{Message: message})
}

// Error writes a ServeRest-style error body: {"message": "..."}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Message{Message: message})
}

// FieldErrors writes a ServeRest validation failure: one key per invalid field.
func FieldErrors(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, fields)
}
