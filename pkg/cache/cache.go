// Package cache provides a generic in-memory key/value store with per-entry
// expiry. It backs the permission memoization layer: resolving a user's
// effective permission costs several storage reads, and the hot paths
// (message send, voice join) would otherwise pay that on every request.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is a thread-safe TTL cache. Reads take the read lock only; a
// lapsed entry is treated as a miss but is not evicted synchronously; the
// background sweep removes it later, keeping Get cheap.
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration

	stopSweep chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its sweep goroutine. sweepInterval is
// deliberately decoupled from ttl: sweeps run less often than entries
// expire, bounding sweep overhead while Get filters lapsed entries.
// Close must be called when the cache is discarded.
func New[K comparable, V any](ttl, sweepInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:   make(map[K]entry[V]),
		ttl:       ttl,
		stopSweep: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopSweep:
				return
			}
		}
	}()

	return c
}

// Get returns the value for key and true only while the entry is live.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with expiry now + ttl.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a single key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc removes every key matching the predicate. This is the bulk
// invalidation path: one role or override mutation can stale many derived
// entries at once, and the mutating service sweeps them all here.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of stored entries, lapsed ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stopSweep)
	})
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
