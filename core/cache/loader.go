package cache

import (
	"context"
	"time"
)

// Loader wraps a TTL cache around a fetch function, giving read-through
// semantics: a hit returns the cached value, a miss calls fetch, caches
// the result on success, and never caches an error. This is the "in-memory
// fallback" shape C17 asks for — the cache is always optional, every
// lookup still has a real repository fetch behind it.
type Loader[K comparable, V any] struct {
	cache *TTL[K, V]
	fetch func(ctx context.Context, key K) (V, error)
}

// NewLoader builds a Loader over a fresh TTL cache with the given lifetime
// and sweep interval.
func NewLoader[K comparable, V any](ttl, sweepInterval time.Duration, fetch func(context.Context, K) (V, error)) *Loader[K, V] {
	return &Loader[K, V]{cache: New[K, V](ttl, sweepInterval), fetch: fetch}
}

// Get returns the cached value for key if present and unexpired,
// otherwise calls fetch, caches the result, and returns it.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err := l.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	l.cache.Set(key, v)
	return v, nil
}

// Invalidate forces the next Get for key to bypass the cache.
func (l *Loader[K, V]) Invalidate(key K) { l.cache.Invalidate(key) }

// Stop releases the underlying cache's background sweep goroutine.
func (l *Loader[K, V]) Stop() { l.cache.Stop() }
