package twincore

import (
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// FaultConfig is an injected response for matching requests.
type FaultConfig struct {
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"delay_ms,omitempty"`
	Rate       float64       `json:"rate"` // probability in [0,1]; 0 means always
}

// FaultRegistry holds faults keyed by pattern. A pattern is a path, optionally
// prefixed by a method ("POST /produtos"). A trailing "/*" matches any id
// below the path ("DELETE /produtos/*").
type FaultRegistry struct {
	mu     sync.RWMutex
	faults map[string]FaultConfig
}

// NewFaultRegistry returns an empty registry.
func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: map[string]FaultConfig{}}
}

// Set registers fault under pattern, replacing any previous one.
func (fr *FaultRegistry) Set(pattern string, fault FaultConfig) {
	if fault.Rate == 0 {
		fault.Rate = 1.0
	}
	fr.mu.Lock()
	fr.faults[pattern] = fault
	fr.mu.Unlock()
}

// Remove deletes pattern and reports whether it was registered.
func (fr *FaultRegistry) Remove(pattern string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	_, ok := fr.faults[pattern]
	delete(fr.faults, pattern)
	return ok
}

// Check finds the fault for a request. Exact patterns beat wildcards and
// method patterns beat bare paths. A fault whose rate roll misses is nil.
func (fr *FaultRegistry) Check(method, path string) *FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	for _, key := range candidates(method, path) {
		f, ok := fr.faults[key]
		if !ok {
			continue
		}
		if f.Rate < 1.0 && rand.Float64() >= f.Rate {
			return nil
		}
		return &f
	}
	return nil
}

func candidates(method, path string) []string {
	keys := []string{method + " " + path, path}
	if i := strings.LastIndex(path, "/"); i > 0 {
		wild := path[:i] + "/*"
		keys = append(keys, method+" "+wild, wild)
	}
	return keys
}

// All returns a snapshot of the registered faults.
func (fr *FaultRegistry) All() map[string]FaultConfig {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	return maps.Clone(fr.faults)
}

// Reset removes every fault.
func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	fr.faults = map[string]FaultConfig{}
	fr.mu.Unlock()
}
