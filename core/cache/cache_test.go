package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLGetMissesUntilSet(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	_, ok := c.Get("a")
	require.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestTTLEntryExpires(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestTTLInvalidateForcesMiss(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	c.Set("a", 1)
	c.Invalidate("a")
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestTTLSweepRemovesOnlyExpired(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set("stale", 1)
	now = now.Add(30 * time.Second)
	c.Set("fresh", 2)
	now = now.Add(45 * time.Second)

	removed := c.Sweep()
	require.Equal(t, 1, removed)
	require.Equal(t, 1, c.Len())
}

func TestLoaderFetchesOnceThenCaches(t *testing.T) {
	calls := 0
	loader := NewLoader[string, int](time.Minute, 0, func(ctx context.Context, key string) (int, error) {
		calls++
		return 42, nil
	})
	ctx := context.Background()

	v, err := loader.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = loader.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)
}

func TestLoaderDoesNotCacheErrors(t *testing.T) {
	calls := 0
	loader := NewLoader[string, int](time.Minute, 0, func(ctx context.Context, key string) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	ctx := context.Background()

	_, err := loader.Get(ctx, "agent-1")
	require.Error(t, err)
	_, err = loader.Get(ctx, "agent-1")
	require.Error(t, err)
	require.Equal(t, 2, calls)
}

func TestLoaderInvalidateForcesRefetch(t *testing.T) {
	calls := 0
	loader := NewLoader[string, int](time.Minute, 0, func(ctx context.Context, key string) (int, error) {
		calls++
		return calls, nil
	})
	ctx := context.Background()

	v, _ := loader.Get(ctx, "k")
	require.Equal(t, 1, v)
	loader.Invalidate("k")
	v, _ = loader.Get(ctx, "k")
	require.Equal(t, 2, v)
}

func TestLimiterCacheAllowsUpToBurstThenBlocks(t *testing.T) {
	c := NewLimiterCache(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.True(t, c.Allow("agent-1"))
	require.True(t, c.Allow("agent-1"))
	require.False(t, c.Allow("agent-1"))
}

func TestLimiterCacheTracksKeysIndependently(t *testing.T) {
	c := NewLimiterCache(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	require.True(t, c.Allow("agent-1"))
	require.True(t, c.Allow("agent-2"))
	require.Equal(t, 2, c.Len())
}

func TestLimiterCacheEvictIdleRemovesStaleEntries(t *testing.T) {
	c := NewLimiterCache(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Allow("stale")
	now = now.Add(2 * time.Minute)
	c.Allow("fresh")

	removed := c.EvictIdle()
	require.Equal(t, 1, removed)
	require.Equal(t, 1, c.Len())
}
