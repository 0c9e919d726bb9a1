// Package client talks to the ServeRest twin's /admin control plane.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
)

// AdminClient talks to a twin's /admin/* endpoints.
type AdminClient struct {
	base string
	http *http.Client
}

// New creates an AdminClient for the twin at baseURL with a 5-second timeout.
func New(baseURL string) *AdminClient {
	return &AdminClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// Counts summarizes a twin's state.
type Counts struct {
	Users    int
	Products int
	Carts    int
}

func (c *AdminClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return bytes.TrimSpace(data), nil
}

// Health checks GET /admin/health. Returns (ok, response body or error message).
func (c *AdminClient) Health(ctx context.Context) (bool, string) {
	body, err := c.do(ctx, http.MethodGet, "/admin/health", nil)
	if err != nil {
		return false, err.Error()
	}
	return true, string(body)
}

// Reset clears users, products, carts, faults, and the request log.
func (c *AdminClient) Reset(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/admin/reset", nil)
	if err != nil {
		return "", fmt.Errorf("reset: %w", err)
	}
	return string(body), nil
}

// Seed loads a JSON or YAML state file into the twin.
func (c *AdminClient) Seed(ctx context.Context, filePath string) (string, error) {
	data, err := store.ReadSeed(filePath)
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, http.MethodPost, "/admin/state", data)
	if err != nil {
		return "", fmt.Errorf("seed: %w", err)
	}
	return string(body), nil
}

// Status counts the records the twin holds.
func (c *AdminClient) Status(ctx context.Context) (Counts, error) {
	body, err := c.do(ctx, http.MethodGet, "/admin/state", nil)
	if err != nil {
		return Counts{}, fmt.Errorf("status: %w", err)
	}
	var state struct {
		Users    map[string]json.RawMessage `json:"usuarios"`
		Products map[string]json.RawMessage `json:"produtos"`
		Carts    map[string]json.RawMessage `json:"carrinhos"`
	}
	if err := json.Unmarshal(body, &state); err != nil {
		return Counts{}, fmt.Errorf("decoding state: %w", err)
	}
	return Counts{Users: len(state.Users), Products: len(state.Products), Carts: len(state.Carts)}, nil
}

// InjectFault makes the twin answer method+path with status until removed.
// An empty method matches every method.
func (c *AdminClient) InjectFault(ctx context.Context, method, path string, status int) error {
	body, _ := json.Marshal(map[string]any{"status_code": status})
	_, err := c.do(ctx, http.MethodPost, faultPath(method, path), body)
	return err
}

// RemoveFault removes a fault set by InjectFault.
func (c *AdminClient) RemoveFault(ctx context.Context, method, path string) error {
	_, err := c.do(ctx, http.MethodDelete, faultPath(method, path), nil)
	return err
}

func faultPath(method, path string) string {
	p := "/admin/fault/" + strings.TrimPrefix(path, "/")
	if method != "" {
		p += "?method=" + url.QueryEscape(method)
	}
	return p
}
