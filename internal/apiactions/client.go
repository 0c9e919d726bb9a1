// Package apiactions turns test intents into calls against a ServeRest API.
//
// HTTP error statuses are data: actions return the raw *Response so scenarios
// can assert negative paths. Only faults come back as errors: transport
// failures, undecodable bodies, a failed login, or a broken listing contract.
package apiactions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
)

// Sentinel errors checked with errors.Is.
var (
	ErrLoginFailed      = errors.New("login failed")
	ErrContract         = errors.New("response contract violated")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Response is the raw outcome of an action.
type Response struct {
	Status  int
	Body    []byte
	Message string
	ID      string
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Client is bound to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	gen     *fixture.Generator
	strict  bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGenerator sets the fixture generator used for default payloads.
func WithGenerator(g *fixture.Generator) Option {
	return func(c *Client) { c.gen = g }
}

// WithStrictRegistration makes RegisterUser return ErrUnexpectedStatus for
// statuses other than 201 and 400 instead of only logging them.
func WithStrictRegistration() Option {
	return func(c *Client) { c.strict = true }
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gen == nil {
		c.gen = fixture.New(0)
	}
	return c
}

// BaseURL returns the API origin the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// envelope holds the fields every ServeRest body may carry.
type envelope struct {
	Message string `json:"message"`
	ID      string `json:"_id"`
}

// do sends one request. The token is sent verbatim and omitted when empty,
// so callers can exercise missing and malformed credentials.
func (c *Client) do(ctx context.Context, method, path, token string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	out := &Response{Status: resp.StatusCode, Body: raw}
	if len(bytes.TrimSpace(raw)) > 0 {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return out, fmt.Errorf("%s %s returned a malformed body (status %d): %w", method, path, resp.StatusCode, err)
		}
		out.Message, out.ID = env.Message, env.ID
	}

	c.logger.Debug("api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return out, nil
}
