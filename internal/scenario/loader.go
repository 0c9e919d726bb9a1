package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
)

// Load parses a JSON scenario file. A relative Setup.Seed is resolved
// against the file's directory.
func Load(path string) (*Scenario, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("scenario %s: only .json scenarios are supported, got %q", path, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", path)
	}
	for i, step := range s.Steps {
		if step.Request.Method == "" || step.Request.Path == "" {
			return nil, fmt.Errorf("scenario %s: step %d (%s) needs a method and a path", path, i+1, step.Name)
		}
	}
	if s.Setup != nil && s.Setup.Seed != "" && !filepath.IsAbs(s.Setup.Seed) {
		s.Setup.Seed = filepath.Join(filepath.Dir(path), s.Setup.Seed)
	}
	return &s, nil
}

// LoadPath loads one scenario file, or every .json file in a directory in
// name order.
func LoadPath(path string) ([]*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios %s: %w", path, err)
	}
	if !info.IsDir() {
		s, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []*Scenario{s}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", path, err)
	}
	var out []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		s, err := Load(filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
