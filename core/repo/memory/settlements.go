package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/settlement"
)

// SettlementRepository is an in-memory repo.SettlementRepository.
type SettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]settlement.Settlement
}

// NewSettlementRepository constructs an empty SettlementRepository.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{settlements: make(map[string]settlement.Settlement)}
}

func (r *SettlementRepository) Get(ctx context.Context, settlementID string) (settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settlements[settlementID]
	if !ok {
		return settlement.Settlement{}, agentpayerrors.NotFound("settlement", settlementID)
	}
	return s, nil
}

func (r *SettlementRepository) Put(ctx context.Context, s settlement.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settlements[s.SettlementID] = s
	return nil
}

func (r *SettlementRepository) ListByEscrow(ctx context.Context, escrowID string) ([]settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []settlement.Settlement
	for _, s := range r.settlements {
		if s.EscrowID == escrowID {
			out = append(out, s)
		}
	}
	return out, nil
}
