package boltdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sardis-labs/agentpay/core/replay"
	"github.com/sardis-labs/agentpay/native/webhook"
	"github.com/stretchr/testify/require"
)

func tempReplayCache(t *testing.T) *ReplayCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.db")
	c, err := OpenReplayCache(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestReplayCacheClaimIsSingleUse(t *testing.T) {
	c := tempReplayCache(t)
	require.Equal(t, replay.Claimed, c.Claim("mandate-1", time.Minute))
	require.Equal(t, replay.AlreadySeen, c.Claim("mandate-1", time.Minute))
}

func TestReplayCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.db")
	c, err := OpenReplayCache(path)
	require.NoError(t, err)
	require.Equal(t, replay.Claimed, c.Claim("mandate-1", time.Hour))
	require.NoError(t, c.Close())

	reopened, err := OpenReplayCache(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.IsClaimed("mandate-1"))
	require.Equal(t, replay.AlreadySeen, reopened.Claim("mandate-1", time.Hour))
}

func TestReplayCacheExpiresAfterTTL(t *testing.T) {
	c := tempReplayCache(t)
	now := time.Unix(1_700_000_000, 0).UTC()
	c.now = func() time.Time { return now }

	require.Equal(t, replay.Claimed, c.Claim("mandate-1", time.Minute))
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	require.Equal(t, replay.Claimed, c.Claim("mandate-1", time.Minute))
}

func TestReplayCacheSweepRemovesExpiredOnly(t *testing.T) {
	c := tempReplayCache(t)
	now := time.Unix(1_700_000_000, 0).UTC()
	c.now = func() time.Time { return now }
	c.Claim("expiring", time.Second)
	c.Claim("fresh", time.Hour)

	c.now = func() time.Time { return now.Add(10 * time.Second) }
	removed := c.Sweep()
	require.Equal(t, 1, removed)
	require.True(t, c.IsClaimed("fresh"))
	require.False(t, c.IsClaimed("expiring"))
}

func TestWebhookLogRecordsAndQueriesByEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhooks.db")
	l, err := OpenWebhookLog(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.RecordAttempt(webhook.Attempt{AttemptID: "a-1", EventID: "evt-1", AttemptNumber: 1}))
	require.NoError(t, l.RecordAttempt(webhook.Attempt{AttemptID: "a-2", EventID: "evt-1", AttemptNumber: 2}))
	require.NoError(t, l.RecordAttempt(webhook.Attempt{AttemptID: "a-3", EventID: "evt-2", AttemptNumber: 1}))

	attempts, err := l.AttemptsForEvent("evt-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)

	other, err := l.AttemptsForEvent("evt-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
}
