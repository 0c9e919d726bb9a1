package twincore

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Middleware holds the request log and fault registry exposed through /admin
// and the handlers that feed them.
type Middleware struct {
	cfg    *Config
	logger *slog.Logger
	ReqLog *RequestLog
	Faults *FaultRegistry
}

// NewMiddleware builds the middleware set for cfg. A nil logger means
// slog.Default().
func NewMiddleware(cfg *Config, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		cfg:    cfg,
		logger: logger,
		ReqLog: NewRequestLog(1000),
		Faults: NewFaultRegistry(),
	}
}

// CORS lets the ServeRest frontend call the twin from another origin.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Monitor")
		h.Set("Access-Control-Max-Age", "3600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLog records every request in ReqLog. With Verbose set it also keeps
// headers, minus the token, and logs each request at debug level.
func (m *Middleware) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := RequestLogEntry{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: status,
			Duration:   elapsed,
			RequestID:  chimw.GetReqID(r.Context()),
			Admin:      strings.HasPrefix(r.URL.Path, "/admin/"),
		}
		if m.cfg.Verbose {
			entry.Headers = redactedHeaders(r.Header)
			m.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status, "duration", elapsed)
		}
		m.ReqLog.Add(entry)
	})
}

func redactedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		if k == "Authorization" {
			out[k] = "[redacted]"
			continue
		}
		out[k] = h.Get(k)
	}
	return out
}

// LatencyInjection sleeps 80-120% of cfg.Latency before each request.
func (m *Middleware) LatencyInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cfg.Latency > 0 {
			time.Sleep(time.Duration(float64(m.cfg.Latency) * (0.8 + rand.Float64()*0.4)))
		}
		next.ServeHTTP(w, r)
	})
}

// RandomFailure answers 500 for a cfg.FailRate share of requests.
func (m *Middleware) RandomFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cfg.FailRate > 0 && rand.Float64() < m.cfg.FailRate {
			Error(w, http.StatusInternalServerError, "simulated random failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FaultInjection answers with the registered fault for the request, if any.
// Mount it on the API routes only so /admin stays reachable.
func (m *Middleware) FaultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fault := m.Faults.Check(r.Method, r.URL.Path)
		if fault == nil {
			next.ServeHTTP(w, r)
			return
		}
		if fault.Delay > 0 {
			time.Sleep(fault.Delay)
		}
		if fault.StatusCode == 0 {
			next.ServeHTTP(w, r)
			return
		}
		body := fault.Body
		if body == "" {
			body = `{"message":"injected fault (` + strconv.Itoa(fault.StatusCode) + `)"}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.StatusCode)
		io.WriteString(w, body)
	})
}
