package cache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterCache hands out one golang.org/x/time/rate.Limiter per key,
// creating it on first use. A limiter idle for longer than idleTimeout
// is removed only when EvictIdle runs; the cache starts no sweep of its
// own. This is the rate-limit half of C17, factored out of
// gateway/middleware's per-client visitor map; that middleware is its
// only user.
type LimiterCache struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	ratePerSec  float64
	burst       int
	idleTimeout time.Duration
	now         func() time.Time
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastUsedAt time.Time
}

// NewLimiterCache constructs a LimiterCache whose limiters all share the
// given rate and burst; EvictIdle removes those idle for longer than
// idleTimeout.
func NewLimiterCache(ratePerSec float64, burst int, idleTimeout time.Duration) *LimiterCache {
	return &LimiterCache{
		limiters:    make(map[string]*limiterEntry),
		ratePerSec:  ratePerSec,
		burst:       burst,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Allow reports whether key may take one token from its limiter right
// now, creating the limiter on first use.
func (c *LimiterCache) Allow(key string) bool {
	return c.AllowN(key, 1)
}

// AllowN reports whether key may take n tokens from its limiter right now.
func (c *LimiterCache) AllowN(key string, n int) bool {
	c.mu.Lock()
	e, ok := c.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(c.ratePerSec), c.burst)}
		c.limiters[key] = e
	}
	e.lastUsedAt = c.now()
	limiter := e.limiter
	c.mu.Unlock()
	return limiter.AllowN(c.now(), n)
}

// EvictIdle removes every limiter untouched for longer than idleTimeout,
// returning the count removed. Intended to be called periodically rather
// than per-key, since a per-key timer would outnumber the limiters
// themselves under high cardinality.
func (c *LimiterCache) EvictIdle() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.limiters {
		if now.Sub(e.lastUsedAt) > c.idleTimeout {
			delete(c.limiters, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked limiters.
func (c *LimiterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}
