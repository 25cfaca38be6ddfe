package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/escrow"
)

// EscrowRepository is an in-memory repo.EscrowRepository.
type EscrowRepository struct {
	mu      sync.RWMutex
	escrows map[string]*escrow.Escrow
}

// NewEscrowRepository constructs an empty EscrowRepository.
func NewEscrowRepository() *EscrowRepository {
	return &EscrowRepository{escrows: make(map[string]*escrow.Escrow)}
}

func (r *EscrowRepository) Get(ctx context.Context, escrowID string) (*escrow.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.escrows[escrowID]
	if !ok {
		return nil, agentpayerrors.NotFound("escrow", escrowID)
	}
	return e.Clone(), nil
}

func (r *EscrowRepository) Put(ctx context.Context, e *escrow.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escrows[e.ID] = e.Clone()
	return nil
}

func (r *EscrowRepository) ListExpirable(ctx context.Context, before int64) ([]*escrow.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*escrow.Escrow
	for _, e := range r.escrows {
		if (e.Status == escrow.StatusCreated || e.Status == escrow.StatusFunded) && e.ExpiresAt <= before {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}
