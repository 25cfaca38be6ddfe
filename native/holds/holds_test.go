package holds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	_, err := Create("h1", "w1", 0, "base", "USDC", time.Now(), time.Hour, time.Hour)
	require.Error(t, err)
}

func TestCreateExpiryIsMaxOfConfiguredAndRequested(t *testing.T) {
	now := time.Now()
	h, err := Create("h1", "w1", 1_000, "base", "USDC", now, 3*time.Hour, time.Hour)
	require.NoError(t, err)
	require.Equal(t, now.Add(3*time.Hour), h.ExpiresAt)
}

func TestCaptureSucceedsWhenActiveAndUnexpired(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.NoError(t, h.Capture(900, "tx-1", now.Add(time.Minute)))
	require.Equal(t, StateCaptured, h.State)
	require.Equal(t, int64(900), h.CapturedAmountMinor)
}

func TestCaptureRejectsAmountAboveHeld(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.Error(t, h.Capture(1_001, "tx-1", now))
}

func TestCaptureRejectsWhenExpired(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.Error(t, h.Capture(500, "tx-1", now.Add(2*time.Hour)))
}

func TestCaptureIsIdempotentForSameCaptureTxID(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.NoError(t, h.Capture(900, "tx-1", now))
	require.NoError(t, h.Capture(900, "tx-1", now))
}

func TestCaptureRejectsNonActiveState(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.NoError(t, h.Void())
	require.Error(t, h.Capture(500, "tx-1", now))
}

func TestVoidOnlyWhileActive(t *testing.T) {
	now := time.Now()
	h, _ := Create("h1", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	require.NoError(t, h.Void())
	require.Error(t, h.Void())
}

func TestExpireOldHoldsTransitionsOnlyActivePastExpiry(t *testing.T) {
	now := time.Now()
	active, _ := Create("h1", "w1", 1_000, "base", "USDC", now.Add(-2*time.Hour), time.Hour, time.Hour)
	fresh, _ := Create("h2", "w1", 1_000, "base", "USDC", now, time.Hour, time.Hour)
	voided, _ := Create("h3", "w1", 1_000, "base", "USDC", now.Add(-2*time.Hour), time.Hour, time.Hour)
	require.NoError(t, voided.Void())

	count := ExpireOldHolds([]*Hold{active, fresh, voided}, now)
	require.Equal(t, 1, count)
	require.Equal(t, StateExpired, active.State)
	require.Equal(t, StateActive, fresh.State)
	require.Equal(t, StateVoided, voided.State)
}
