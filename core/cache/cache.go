// Package cache implements the read-through cache layer (C17): a
// generic, in-memory, TTL-bounded cache fronting the wallet, agent, and
// balance repository lookups the orchestrator makes on every request, plus
// a limiter cache for per-subject rate limiting. There is no external
// cache dependency anywhere in the stack this was grown from — the
// map-plus-cleanup shape here was grown from gateway/middleware's
// per-client limiter table, generalized with a type parameter instead of
// copied; that RateLimiter now keeps its limiters in a LimiterCache.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a generic, mutex-guarded cache where every entry carries its own
// expiry. A background sweep goroutine evicts expired entries so a
// long-lived cache doesn't grow unbounded with dead keys; Stop must be
// called to release it.
type TTL[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New constructs a TTL cache with the given per-entry lifetime and starts
// its background sweep at sweepInterval. Callers that never want a
// background sweep (e.g. short-lived tests) can pass a zero interval.
func New[K comparable, V any](ttl, sweepInterval time.Duration) *TTL[K, V] {
	c := &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Get returns the cached value for key and whether it was present and
// unexpired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value for key with the cache's configured TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate removes key, forcing the next Get to miss. Callers hold this
// after a Put on the underlying repository so a stale cached value never
// outlives a fresh write for longer than it takes to call Invalidate.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of entries currently held, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns the count removed.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *TTL[K, V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Stop terminates the background sweep goroutine, if one was started. Safe
// to call more than once.
func (c *TTL[K, V]) Stop() {
	c.once.Do(func() { close(c.stop) })
}
