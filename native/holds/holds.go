// Package holds implements the pre-authorization hold lifecycle (C8):
// create, capture, void, and periodic expiry of reserved-intent records.
// The state machine is one-way: active -> {captured, voided, expired}.
package holds

import (
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// State is a hold's lifecycle state.
type State string

const (
	StateActive   State = "active"
	StateCaptured State = "captured"
	StateVoided   State = "voided"
	StateExpired  State = "expired"
)

// Hold is a reserved-intent record.
type Hold struct {
	HoldID              string
	WalletID            string
	AmountMinor         int64
	Chain               string
	Token               string
	State               State
	CreatedAt           time.Time
	ExpiresAt           time.Time
	CapturedAmountMinor int64
	CaptureTxID         string
}

// Create builds a new active Hold. requestedDuration and configuredMax are
// both durations from now; the hold's expiry is now + the larger of the
// two, matching spec.md's "max(configured, requested)" rule.
func Create(holdID, walletID string, amountMinor int64, chain, token string, now time.Time, requestedDuration, configuredMax time.Duration) (*Hold, error) {
	if amountMinor <= 0 {
		return nil, agentpayerrors.Validation("hold amount must be positive, got %d", amountMinor)
	}
	duration := configuredMax
	if requestedDuration > duration {
		duration = requestedDuration
	}
	return &Hold{
		HoldID: holdID, WalletID: walletID, AmountMinor: amountMinor,
		Chain: chain, Token: token, State: StateActive,
		CreatedAt: now, ExpiresAt: now.Add(duration),
	}, nil
}

// Capture converts an active, unexpired hold into a settlement record,
// capturing at most the hold's reserved amount. It is idempotent per
// captureTxID: calling Capture again with the same captureTxID on an
// already-captured hold for the same amount is a no-op success rather
// than a Conflict, so retried capture calls are safe.
func (h *Hold) Capture(captureAmountMinor int64, captureTxID string, now time.Time) error {
	if h.State == StateCaptured && h.CaptureTxID == captureTxID {
		return nil
	}
	if h.State != StateActive {
		return agentpayerrors.Conflict("hold %s is %s, not active", h.HoldID, h.State)
	}
	if now.After(h.ExpiresAt) {
		return agentpayerrors.Conflict("hold %s expired at %s", h.HoldID, h.ExpiresAt)
	}
	if captureAmountMinor <= 0 || captureAmountMinor > h.AmountMinor {
		return agentpayerrors.Validation(
			"capture amount %d exceeds held amount %d", captureAmountMinor, h.AmountMinor)
	}
	h.State = StateCaptured
	h.CapturedAmountMinor = captureAmountMinor
	h.CaptureTxID = captureTxID
	return nil
}

// Void cancels an active hold, releasing the reservation without
// capturing any funds.
func (h *Hold) Void() error {
	if h.State != StateActive {
		return agentpayerrors.Conflict("hold %s is %s, not active", h.HoldID, h.State)
	}
	h.State = StateVoided
	return nil
}

// ExpireIfPast transitions an active hold past its expiry to StateExpired,
// returning whether it did.
func (h *Hold) ExpireIfPast(now time.Time) bool {
	if h.State != StateActive || !now.After(h.ExpiresAt) {
		return false
	}
	h.State = StateExpired
	return true
}

// ExpireOldHolds sweeps every active, past-expiry hold in holds to
// StateExpired, returning the count transitioned.
func ExpireOldHolds(holds []*Hold, now time.Time) int {
	count := 0
	for _, h := range holds {
		if h.ExpireIfPast(now) {
			count++
		}
	}
	return count
}
