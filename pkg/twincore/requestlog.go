package twincore

import (
	"sync"
	"time"
)

// RequestLogEntry is one request as shown by GET /admin/requests.
type RequestLogEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Headers    map[string]string `json:"headers,omitempty"`
	StatusCode int               `json:"status_code"`
	Duration   time.Duration     `json:"duration_ms"`
	RequestID  string            `json:"request_id,omitempty"`
	Admin      bool              `json:"admin,omitempty"`
}

// RequestLog keeps the last N requests in a fixed ring.
type RequestLog struct {
	mu   sync.Mutex
	buf  []RequestLogEntry
	next int
	full bool
}

// NewRequestLog allocates a ring holding size entries.
func NewRequestLog(size int) *RequestLog {
	if size < 1 {
		size = 1
	}
	return &RequestLog{buf: make([]RequestLogEntry, size)}
}

// Add records e, overwriting the oldest entry once the ring is full.
func (rl *RequestLog) Add(e RequestLogEntry) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.buf[rl.next] = e
	rl.next = (rl.next + 1) % len(rl.buf)
	if rl.next == 0 {
		rl.full = true
	}
}

// Entries returns the recorded requests, oldest first.
func (rl *RequestLog) Entries() []RequestLogEntry {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if !rl.full {
		return append([]RequestLogEntry(nil), rl.buf[:rl.next]...)
	}
	out := make([]RequestLogEntry, 0, len(rl.buf))
	out = append(out, rl.buf[rl.next:]...)
	return append(out, rl.buf[:rl.next]...)
}

// Clear drops every entry.
func (rl *RequestLog) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	clear(rl.buf)
	rl.next, rl.full = 0, false
}
