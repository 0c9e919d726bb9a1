package scenario

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// CheckBody evaluates JSONPath assertions against a JSON body. A plain value
// means equality; a map applies operators:
//
//	exists, eq, ne, gt, gte, lte, contains, regex, type, length
func CheckBody(body []byte, assertions map[string]any) error {
	doc, err := decodeDoc(body)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(assertions))
	for p := range assertions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		actual, found, err := lookup(doc, path)
		if err != nil {
			return err
		}
		ops, isOps := assertions[path].(map[string]any)
		if !isOps {
			ops = map[string]any{"eq": assertions[path]}
		}
		if err := applyOps(path, actual, found, ops); err != nil {
			return err
		}
	}
	return nil
}

func applyOps(path string, actual any, found bool, ops map[string]any) error {
	if want, ok := ops["exists"]; ok {
		b, isBool := want.(bool)
		if !isBool {
			return fmt.Errorf("JSONPath %q: 'exists' needs a boolean", path)
		}
		if b != found {
			return fmt.Errorf("JSONPath %q: exists=%v, want %v", path, found, b)
		}
	}

	for op, want := range ops {
		if op == "exists" {
			continue
		}
		if !found {
			return fmt.Errorf("JSONPath %q: no match found for %q", path, op)
		}
		if err := applyOp(op, actual, want); err != nil {
			return fmt.Errorf("JSONPath %q: %w", path, err)
		}
	}
	return nil
}

func applyOp(op string, actual, want any) error {
	switch op {
	case "eq":
		if !equal(actual, want) {
			return fmt.Errorf("expected %v, got %v", want, actual)
		}
	case "ne":
		if equal(actual, want) {
			return fmt.Errorf("expected anything but %v", want)
		}
	case "gt", "gte", "lte":
		a, aok := actual.(float64)
		w, wok := want.(float64)
		if !aok || !wok {
			return fmt.Errorf("%q compares numbers, got %v (%T) and %v (%T)", op, actual, actual, want, want)
		}
		if (op == "gt" && a <= w) || (op == "gte" && a < w) || (op == "lte" && a > w) {
			return fmt.Errorf("expected %s %v, got %v", op, w, a)
		}
	case "contains":
		if !strings.Contains(fmt.Sprint(actual), fmt.Sprint(want)) {
			return fmt.Errorf("expected to contain %q, got %q", want, actual)
		}
	case "regex":
		pattern, ok := want.(string)
		if !ok {
			return fmt.Errorf("'regex' needs a string pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex %q: %w", pattern, err)
		}
		if !re.MatchString(fmt.Sprint(actual)) {
			return fmt.Errorf("value %q does not match %q", actual, pattern)
		}
	case "type":
		if got := typeName(actual); got != want {
			return fmt.Errorf("expected type %v, got %s", want, got)
		}
	case "length":
		var n int
		switch v := actual.(type) {
		case []any:
			n = len(v)
		case map[string]any:
			n = len(v)
		case string:
			n = len(v)
		default:
			return fmt.Errorf("'length' needs an array, object, or string, got %T", actual)
		}
		if w, ok := want.(float64); !ok || float64(n) != w {
			return fmt.Errorf("expected length %v, got %d", want, n)
		}
	default:
		return fmt.Errorf("unknown operator %q", op)
	}
	return nil
}

// equal compares decoded JSON values. Numbers compare by value; strings and
// numbers never equal each other.
func equal(actual, want any) bool {
	a, aNum := actual.(float64)
	w, wNum := want.(float64)
	if aNum || wNum {
		return aNum && wNum && a == w
	}
	return fmt.Sprint(actual) == fmt.Sprint(want)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
