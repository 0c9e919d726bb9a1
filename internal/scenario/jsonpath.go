package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// lookup evaluates a dot-notation JSONPath ($.a.b, $.list[0].c) against a
// decoded document. ok is false when any segment is missing.
func lookup(doc any, path string) (v any, ok bool, err error) {
	rest, found := strings.CutPrefix(path, "$")
	if !found {
		return nil, false, fmt.Errorf("JSONPath must start with $: %q", path)
	}
	rest = strings.TrimPrefix(rest, ".")

	cur := doc
	for _, seg := range splitSegments(rest) {
		field, index, hasIndex := strings.Cut(seg, "[")
		if field != "" {
			m, isMap := cur.(map[string]any)
			if !isMap {
				return nil, false, nil
			}
			if cur, ok = m[field]; !ok {
				return nil, false, nil
			}
		}
		if !hasIndex {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSuffix(index, "]"))
		if err != nil {
			return nil, false, fmt.Errorf("invalid array index in %q: %w", seg, err)
		}
		arr, isArr := cur.([]any)
		if !isArr || i < 0 || i >= len(arr) {
			return nil, false, nil
		}
		cur = arr[i]
	}
	return cur, true, nil
}

// splitSegments splits "a.b[0].c" on dots outside brackets.
func splitSegments(path string) []string {
	var segs []string
	depth, start := 0, 0
	for i, ch := range path {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				segs = append(segs, path[start:i])
				start = i + 1
			}
		}
	}
	segs = append(segs, path[start:])
	out := segs[:0]
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeDoc(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	return doc, nil
}

// Extract returns the value at path in a JSON body.
func Extract(body []byte, path string) (any, error) {
	doc, err := decodeDoc(body)
	if err != nil {
		return nil, err
	}
	v, ok, err := lookup(doc, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("JSONPath %q: no match found", path)
	}
	return v, nil
}
