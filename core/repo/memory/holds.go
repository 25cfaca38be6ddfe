package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/holds"
)

// HoldRepository is an in-memory repo.HoldRepository.
type HoldRepository struct {
	mu    sync.RWMutex
	holds map[string]*holds.Hold
}

// NewHoldRepository constructs an empty HoldRepository.
func NewHoldRepository() *HoldRepository {
	return &HoldRepository{holds: make(map[string]*holds.Hold)}
}

func (r *HoldRepository) Get(ctx context.Context, holdID string) (*holds.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holds[holdID]
	if !ok {
		return nil, agentpayerrors.NotFound("hold", holdID)
	}
	cp := *h
	return &cp, nil
}

func (r *HoldRepository) Put(ctx context.Context, h *holds.Hold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *h
	r.holds[h.HoldID] = &cp
	return nil
}

func (r *HoldRepository) ListActive(ctx context.Context, walletID string) ([]*holds.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*holds.Hold
	for _, h := range r.holds {
		if h.WalletID == walletID && h.State == holds.StateActive {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *HoldRepository) ListExpirable(ctx context.Context, before int64) ([]*holds.Hold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*holds.Hold
	for _, h := range r.holds {
		if h.State == holds.StateActive && h.ExpiresAt.Unix() <= before {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}
