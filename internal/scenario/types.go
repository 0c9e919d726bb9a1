// Package scenario runs declarative JSON scenarios against a ServeRest API:
// each step sends one request, captures values from the response, and
// asserts on status, headers, and JSONPath expressions over the body.
package scenario

// Scenario is a complete test scenario loaded from a JSON file.
type Scenario struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Setup       *Setup            `json:"setup,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	Steps       []Step            `json:"steps"`
}

// Setup runs against the twin's admin plane before the first step. It is
// meaningless against a real deployment.
type Setup struct {
	Reset bool   `json:"reset,omitempty"`
	Seed  string `json:"seed,omitempty"` // path relative to the scenario file
}

// Step is a single request/assert pair within a scenario.
type Step struct {
	Name    string            `json:"name"`
	Request Request           `json:"request"`
	Capture map[string]string `json:"capture,omitempty"`
	Assert  *Assert           `json:"assert,omitempty"`
}

// Request is the HTTP request a step sends. Path is joined to the API URL
// unless it is already absolute.
type Request struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Assert is what a step expects back.
type Assert struct {
	Status       int               `json:"status,omitempty"`
	BodyContains string            `json:"body_contains,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         map[string]any    `json:"body,omitempty"`
}
