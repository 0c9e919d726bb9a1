// Package store provides a generic, thread-safe, in-memory collection used by
// the ServeRest twin. Records keep insertion order, receive ServeRest-style
// opaque IDs, and can be snapshotted for the admin control plane.
package store

import (
	"crypto/rand"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// idAlphabet matches the character set of the ids ServeRest hands out.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// IDLength is the length of every generated record id.
const IDLength = 16

// Store is a generic, thread-safe, in-memory collection of T keyed by id.
type Store[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string // insertion order for deterministic listing
	newID func() string
}

// New creates an empty Store that generates random 16-character ids.
func New[T any]() *Store[T] {
	return &Store[T]{
		items: make(map[string]T),
		order: make([]string, 0),
		newID: randomID,
	}
}

// WithIDFunc replaces the id generator. Tests use it to get predictable ids.
func (s *Store[T]) WithIDFunc(fn func() string) *Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newID = fn
	return s
}

// NextID returns an id that is not currently in use.
func (s *Store[T]) NextID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		id := s.newID()
		if _, taken := s.items[id]; !taken {
			return id
		}
	}
}

// Set stores an item under id. Overwriting keeps the original position.
func (s *Store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// Insert stores item under id only if keyFn(item) does not collide with an
// existing item's key. It returns false on collision. The check and the write
// happen under one lock, so concurrent inserts cannot both win.
func (s *Store[T]) Insert(id string, item T, keyFn func(T) string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keyFn != nil {
		key := keyFn(item)
		for _, oid := range s.order {
			if keyFn(s.items[oid]) == key {
				return false
			}
		}
	}
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
	return true
}

// Get retrieves an item by id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Update applies fn to the item stored under id while holding the write lock.
// It returns false if the id does not exist or fn returns false.
func (s *Store[T]) Update(id string, fn func(*T) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	if !fn(&item) {
		return false
	}
	s.items[id] = item
	return true
}

// Delete removes an item by id. Returns true if the item existed.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		return false
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.items[id])
	}
	return result
}

// Count returns the number of items in the store.
func (s *Store[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filter returns items that match the predicate, in insertion order.
func (s *Store[T]) Filter(predicate func(id string, item T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]T, 0)
	for _, id := range s.order {
		if predicate(id, s.items[id]) {
			result = append(result, s.items[id])
		}
	}
	return result
}

// Find returns the first item matching the predicate.
func (s *Store[T]) Find(predicate func(id string, item T) bool) (string, T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if predicate(id, s.items[id]) {
			return id, s.items[id], true
		}
	}
	var zero T
	return "", zero, false
}

// Reset clears all items.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
	s.order = make([]string, 0)
}

// Snapshot returns all items as a JSON-serializable map.
func (s *Store[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]T, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	return snapshot
}

// LoadSnapshot replaces all items. IDs are sorted to keep listing deterministic.
func (s *Store[T]) LoadSnapshot(snapshot map[string]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(snapshot))
	s.order = make([]string, 0, len(snapshot))
	for k, v := range snapshot {
		s.items[k] = v
		s.order = append(s.order, k)
	}
	sort.Strings(s.order)
}

// MarshalJSON serializes the store to JSON (the items map).
func (s *Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON deserializes JSON into the store, replacing existing items.
func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var snapshot map[string]T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}
	s.LoadSnapshot(snapshot)
	return nil
}

func randomID() string {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		panic("store: reading random bytes: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}

// Clock provides a simulated clock so token expiry can be exercised without
// waiting.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock creates a new simulated clock with no offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Advance moves the simulated clock forward by the given duration.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Reset resets the clock offset to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}

// Offset returns the current clock offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
