package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
)

// Matcher selects the network request an action waits for.
type Matcher func(method, rawURL string) bool

// Request matches method calls to base+path exactly (query ignored).
func Request(method, base, path string) Matcher {
	want := strings.TrimRight(base, "/") + path
	return func(m, raw string) bool {
		if !strings.EqualFold(m, method) {
			return false
		}
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		u.RawQuery, u.Fragment = "", ""
		return u.String() == want
	}
}

// RequestPrefix matches method calls whose URL starts with base+prefix.
func RequestPrefix(method, base, prefix string) Matcher {
	want := strings.TrimRight(base, "/") + prefix
	return func(m, raw string) bool {
		return strings.EqualFold(m, method) && strings.HasPrefix(raw, want)
	}
}

// Exchange is a completed request observed on the wire.
type Exchange struct {
	Method string
	URL    string
	Status int
}

type waiter struct {
	match     Matcher
	requestID network.RequestID
	exchange  Exchange
	done      chan error
}

// tracker correlates CDP network events with registered waiters. The first
// request a waiter matches is the one it follows to completion.
type tracker struct {
	mu      sync.Mutex
	waiters map[*waiter]struct{}
}

func newTracker() *tracker {
	return &tracker{waiters: make(map[*waiter]struct{})}
}

func (t *tracker) add(m Matcher) *waiter {
	w := &waiter{match: m, done: make(chan error, 1)}
	t.mu.Lock()
	t.waiters[w] = struct{}{}
	t.mu.Unlock()
	return w
}

func (t *tracker) remove(w *waiter) {
	t.mu.Lock()
	delete(t.waiters, w)
	t.mu.Unlock()
}

func (t *tracker) requestSent(id network.RequestID, method, rawURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for w := range t.waiters {
		if w.requestID == "" && w.match(method, rawURL) {
			w.requestID = id
			w.exchange = Exchange{Method: method, URL: rawURL}
		}
	}
}

func (t *tracker) responseReceived(id network.RequestID, status int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for w := range t.waiters {
		if w.requestID == id {
			w.exchange.Status = int(status)
		}
	}
}

func (t *tracker) finished(id network.RequestID, failure string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for w := range t.waiters {
		if w.requestID != id {
			continue
		}
		var err error
		if failure != "" {
			err = fmt.Errorf("%s %s: %w: %s", w.exchange.Method, w.exchange.URL, ErrRequestFailed, failure)
		}
		select {
		case w.done <- err:
		default:
		}
	}
}

// ErrRequestFailed reports an awaited request that never got a response.
var ErrRequestFailed = errors.New("request failed")

// handle dispatches one CDP event.
func (t *tracker) handle(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.requestSent(e.RequestID, e.Request.Method, e.Request.URL)
	case *network.EventResponseReceived:
		t.responseReceived(e.RequestID, e.Response.Status)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID, "")
	case *network.EventLoadingFailed:
		t.finished(e.RequestID, e.ErrorText)
	}
}
