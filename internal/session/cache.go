// Package session memoizes side-effecting setup, such as a browser login,
// keyed by its inputs.
package session

import "sync"

// Cache runs a creator at most once per key and remembers only successful
// results. It is safe for concurrent use; concurrent callers for the same key
// wait for the first creator to finish.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	locks   map[K]*sync.Mutex
}

// NewCache returns an empty Cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]V),
		locks:   make(map[K]*sync.Mutex),
	}
}

// GetOrCreate returns the cached value for key, calling create on a miss.
// hit reports whether the value came from the cache. A failed create caches
// nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (v V, hit bool, err error) {
	keyLock := c.keyLock(key)
	keyLock.Lock()
	defer keyLock.Unlock()

	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return v, true, nil
	}

	v, err = create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
	return v, false, nil
}

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Forget drops key so the next GetOrCreate runs its creator again.
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) keyLock(key K) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}
