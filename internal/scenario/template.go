package scenario

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
)

// Expander resolves {{...}} placeholders:
//   - {{config.api_url}} and {{config.front_url}}
//   - {{env.VARIABLE}}
//   - {{fake.name}}, {{fake.email}}, {{fake.password}}, {{fake.product}},
//     {{fake.description}}, {{fake.price}}
//   - {{variable}} from scenario variables and captures
type Expander struct {
	APIURL   string
	FrontURL string
	Gen      *fixture.Generator
	Vars     map[string]string
}

// Expand replaces every placeholder in s.
func (e *Expander) Expand(s string) (string, error) {
	var b strings.Builder
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return "", fmt.Errorf("unterminated template expression in %q", s)
		}
		value, err := e.resolve(strings.TrimSpace(s[start+2 : start+end]))
		if err != nil {
			return "", err
		}
		b.WriteString(s[:start])
		b.WriteString(value)
		s = s[start+end+2:]
	}
}

func (e *Expander) resolve(expr string) (string, error) {
	if key, ok := strings.CutPrefix(expr, "env."); ok {
		return os.Getenv(key), nil
	}
	if key, ok := strings.CutPrefix(expr, "config."); ok {
		switch key {
		case "api_url":
			return e.APIURL, nil
		case "front_url":
			return e.FrontURL, nil
		}
		return "", fmt.Errorf("unknown config template %q (expected api_url or front_url)", expr)
	}
	if key, ok := strings.CutPrefix(expr, "fake."); ok {
		return e.fake(key)
	}
	if v, ok := e.Vars[expr]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unresolved template expression: %q", expr)
}

func (e *Expander) fake(kind string) (string, error) {
	if e.Gen == nil {
		return "", fmt.Errorf("fake.%s: no generator configured", kind)
	}
	switch kind {
	case "name":
		return e.Gen.User(false).Name, nil
	case "email":
		return e.Gen.User(false).Email, nil
	case "password":
		return e.Gen.User(false).Password, nil
	case "product":
		return e.Gen.ProductName(), nil
	case "description":
		return e.Gen.Product().Description, nil
	case "price":
		return strconv.Itoa(e.Gen.Product().Price), nil
	}
	return "", fmt.Errorf("unknown fake template %q", kind)
}

// expandValue expands every string inside a decoded JSON value. Other types
// are kept, so numeric fields stay numbers.
func (e *Expander) expandValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return e.Expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			x, err := e.expandValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = x
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			x, err := e.expandValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	default:
		return v, nil
	}
}
