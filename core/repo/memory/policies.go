package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/policy"
)

// PolicyRepository is an in-memory repo.PolicyRepository.
type PolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]policy.Policy
}

// NewPolicyRepository constructs an empty PolicyRepository.
func NewPolicyRepository() *PolicyRepository {
	return &PolicyRepository{policies: make(map[string]policy.Policy)}
}

func (r *PolicyRepository) Get(ctx context.Context, agentID string) (policy.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[agentID]
	if !ok {
		return policy.Policy{}, agentpayerrors.NotFound("policy", agentID)
	}
	return p, nil
}

func (r *PolicyRepository) Put(ctx context.Context, p policy.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.AgentID] = p
	return nil
}
