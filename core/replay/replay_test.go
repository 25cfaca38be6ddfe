package replay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClaimIsSingleUse(t *testing.T) {
	c := NewInMemory()
	require.Equal(t, Claimed, c.Claim("m1", time.Minute))
	require.Equal(t, AlreadySeen, c.Claim("m1", time.Minute))
}

func TestClaimConcurrentCallersExactlyOneWins(t *testing.T) {
	c := NewInMemory()
	const n = 100
	var wg sync.WaitGroup
	results := make([]ClaimResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Claim("same-mandate", time.Minute)
		}(i)
	}
	wg.Wait()

	claims := 0
	for _, r := range results {
		if r == Claimed {
			claims++
		}
	}
	require.Equal(t, 1, claims)
}

func TestClaimExpiresAfterTTL(t *testing.T) {
	fixed := time.Now()
	c := NewInMemory()
	c.now = func() time.Time { return fixed }
	require.Equal(t, Claimed, c.Claim("m1", time.Second))

	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	require.Equal(t, Claimed, c.Claim("m1", time.Second))
}

func TestIsClaimedDoesNotCreateEntry(t *testing.T) {
	c := NewInMemory()
	require.False(t, c.IsClaimed("unknown"))
	require.Equal(t, 0, c.Len())
}

func TestSweepRemovesExpiredEntriesOnly(t *testing.T) {
	fixed := time.Now()
	c := NewInMemory()
	c.now = func() time.Time { return fixed }
	c.Claim("expires-soon", time.Second)
	c.Claim("lives-long", time.Hour)

	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	removed := c.Sweep()
	require.Equal(t, 1, removed)
	require.Equal(t, 1, c.Len())
}
