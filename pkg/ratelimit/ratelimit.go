// Package ratelimit implements a keyed sliding-window limiter with a
// cooldown penalty. The same algorithm backs both abuse-prevention paths:
// login attempts keyed by client IP and message sends keyed by user id,
// with different parameters.
//
// The limiter is a leaf dependency: it imports nothing from the rest of the
// project, so middleware and handlers can both use it without cycles.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucket holds per-key state: the counting window and, once the window's
// maximum has been exceeded, the cooldown deadline. A zero cooldownUntil
// means no cooldown is active.
type bucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// Limiter is a two-phase sliding-window rate limiter. Within a window each
// Allow increments a counter; exceeding max starts a cooldown during which
// every call is rejected. Operations are linearizable per key under the
// limiter's lock; critical sections are O(1).
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	max      int
	window   time.Duration
	cooldown time.Duration

	sweepInterval time.Duration
	stopSweep     chan struct{}
	closeOnce     sync.Once

	now func() time.Time
}

// New creates a limiter and starts its background sweep, which removes keys
// whose window and cooldown have both lapsed so that high key cardinality
// (many distinct IPs or users) cannot grow memory without bound.
// Close must be called when the limiter is discarded.
func New(max int, window, cooldown, sweepInterval time.Duration) *Limiter {
	l := &Limiter{
		buckets:       make(map[string]*bucket),
		max:           max,
		window:        window,
		cooldown:      cooldown,
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
		now:           time.Now,
	}

	go l.sweepLoop()

	return l
}

// Allow reports whether the request identified by key may proceed, and
// records it. Callers should respond with 429 and RemainingCooldown on false.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists {
		l.buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		// Cooldown served; start a fresh window.
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > l.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > l.max {
		b.cooldownUntil = now.Add(l.cooldown)
		return false
	}
	return true
}

// Reset clears all state for a key. Called after a successful login so a
// legitimate user is not punished for earlier failed attempts.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// RemainingCooldown returns the whole seconds left on a key's cooldown,
// rounded up, or zero when no cooldown is active. Used as the Retry-After
// value surfaced to throttled callers.
func (l *Limiter) RemainingCooldown(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, exists := l.buckets[key]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := b.cooldownUntil.Sub(l.now())
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Close stops the background sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() {
		close(l.stopSweep)
	})
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopSweep:
			return
		}
	}
}

// sweep removes every bucket whose window has lapsed and whose cooldown, if
// any, has been served. Keys still inside a cooldown are kept so the penalty
// cannot be cleared by memory pressure.
func (l *Limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		windowLapsed := now.Sub(b.windowStart) > l.window
		cooldownLapsed := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowLapsed && cooldownLapsed {
			delete(l.buckets, key)
		}
	}
}

// ExtractIP derives the client address used to key the login limiter.
//
// Precedence: first hop of X-Forwarded-For, then X-Real-IP, then the socket
// address. The header precedence assumes a trusted reverse proxy is the only
// thing that can set those headers. Without one they are spoofable and the
// socket address should be used directly.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
