// Package memory implements in-memory adapters for every repository
// contract in core/repo (C16): the reference implementation exercised by
// tests and local/dev runs, with the same shape the persistent adapters
// in core/repo/postgres and core/repo/boltdb expose.
package memory

import (
	"context"
	"sync"

	"github.com/sardis-labs/agentpay/core/repo"
	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// AgentRepository is an in-memory repo.AgentRepository.
type AgentRepository struct {
	mu     sync.RWMutex
	agents map[string]repo.AgentRecord
}

// NewAgentRepository constructs an empty AgentRepository.
func NewAgentRepository() *AgentRepository {
	return &AgentRepository{agents: make(map[string]repo.AgentRecord)}
}

func (r *AgentRepository) Get(ctx context.Context, agentID string) (repo.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[agentID]
	if !ok {
		return repo.AgentRecord{}, agentpayerrors.NotFound("agent", agentID)
	}
	return rec, nil
}

func (r *AgentRepository) Put(ctx context.Context, rec repo.AgentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[rec.AgentID] = rec
	return nil
}

func (r *AgentRepository) List(ctx context.Context, organizationID string) ([]repo.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []repo.AgentRecord
	for _, rec := range r.agents {
		if organizationID == "" || rec.OrganizationID == organizationID {
			out = append(out, rec)
		}
	}
	return out, nil
}
