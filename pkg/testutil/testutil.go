// Package testutil drives the ServeRest twin from tests. Every call fails the
// test on transport errors, so tests only deal with statuses and bodies.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

// TwinClient sends JSON requests to a twin, optionally as a logged-in user.
type TwinClient struct {
	BaseURL    string
	HTTPClient *http.Client
	t          testing.TB
	token      string
}

// NewTwinClient points a client at an httptest server.
func NewTwinClient(t testing.TB, server *httptest.Server) *TwinClient {
	return &TwinClient{BaseURL: server.URL, HTTPClient: server.Client(), t: t}
}

// NewTwinClientURL points a client at a running twin.
func NewTwinClientURL(t testing.TB, baseURL string) *TwinClient {
	return &TwinClient{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: &http.Client{}, t: t}
}

// WithToken returns a copy that sends token verbatim as Authorization.
func (c *TwinClient) WithToken(token string) *TwinClient {
	cp := *c
	cp.token = token
	return &cp
}

// Get sends a GET.
func (c *TwinClient) Get(path string) *Response {
	c.t.Helper()
	return c.send(http.MethodGet, path, nil)
}

// Post sends a POST with body encoded as JSON.
func (c *TwinClient) Post(path string, body any) *Response {
	c.t.Helper()
	return c.send(http.MethodPost, path, body)
}

// Put sends a PUT with body encoded as JSON.
func (c *TwinClient) Put(path string, body any) *Response {
	c.t.Helper()
	return c.send(http.MethodPut, path, body)
}

// Delete sends a DELETE.
func (c *TwinClient) Delete(path string) *Response {
	c.t.Helper()
	return c.send(http.MethodDelete, path, nil)
}

func (c *TwinClient) send(method, path string, body any) *Response {
	c.t.Helper()

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("%s %s: encoding body: %v", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, payload)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("%s %s: reading body: %v", method, path, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw, Headers: resp.Header, t: c.t}
}

// Response is a twin reply with chainable assertions.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	t          testing.TB
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("decoding body: %v\nbody: %s", err, r.Body)
	}
}

// JSONMap decodes the body as an object.
func (r *Response) JSONMap() map[string]any {
	r.t.Helper()
	var m map[string]any
	r.JSON(&m)
	return m
}

// Message is the "message" field, or "".
func (r *Response) Message() string {
	r.t.Helper()
	msg, _ := r.JSONMap()["message"].(string)
	return msg
}

// ID is the "_id" of a creation reply. A reply without one fails the test.
func (r *Response) ID() string {
	r.t.Helper()
	id, _ := r.JSONMap()["_id"].(string)
	if id == "" {
		r.t.Fatalf("no _id in body: %s", r.Body)
	}
	return id
}

// AssertStatus checks the status code.
func (r *Response) AssertStatus(want int) *Response {
	r.t.Helper()
	if r.StatusCode != want {
		r.t.Errorf("status = %d, want %d\nbody: %s", r.StatusCode, want, r.Body)
	}
	return r
}

// AssertMessage checks the "message" field exactly.
func (r *Response) AssertMessage(want string) *Response {
	r.t.Helper()
	if got := r.Message(); got != want {
		r.t.Errorf("message = %q, want %q", got, want)
	}
	return r
}

// AdminClient calls the twin's /admin control plane.
type AdminClient struct {
	tc *TwinClient
}

// NewAdminClient wraps tc. Admin routes ignore Authorization.
func NewAdminClient(tc *TwinClient) *AdminClient {
	return &AdminClient{tc: tc.WithToken("")}
}

// Reset empties the store.
func (a *AdminClient) Reset() *Response {
	a.tc.t.Helper()
	return a.tc.Post("/admin/reset", nil)
}

// LoadState replaces the store with state.
func (a *AdminClient) LoadState(state any) *Response {
	a.tc.t.Helper()
	return a.tc.Post("/admin/state", state)
}

// InjectFault registers a fault for endpoint, e.g. "produtos".
func (a *AdminClient) InjectFault(endpoint string, fault any) *Response {
	a.tc.t.Helper()
	return a.tc.Post("/admin/fault/"+strings.TrimPrefix(endpoint, "/"), fault)
}

// RemoveFault clears the fault for endpoint.
func (a *AdminClient) RemoveFault(endpoint string) *Response {
	a.tc.t.Helper()
	return a.tc.Delete("/admin/fault/" + strings.TrimPrefix(endpoint, "/"))
}

// AdvanceTime moves the twin clock, which expires tokens.
func (a *AdminClient) AdvanceTime(d string) *Response {
	a.tc.t.Helper()
	return a.tc.Post("/admin/time/advance", map[string]string{"duration": d})
}

// Health probes /admin/health.
func (a *AdminClient) Health() *Response {
	a.tc.t.Helper()
	return a.tc.Get("/admin/health")
}
