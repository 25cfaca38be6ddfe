package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/policy"
)

// PolicyRepository is a gorm-backed repo.PolicyRepository. The policy body
// is stored as JSON since its shape (nested window limits, merchant rules)
// doesn't warrant a fully normalized schema for a single-row-per-agent
// lookup table.
type PolicyRepository struct{ db *gorm.DB }

func NewPolicyRepository(db *gorm.DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) Get(ctx context.Context, agentID string) (policy.Policy, error) {
	var m policyModel
	if err := r.db.WithContext(ctx).First(&m, "agent_id = ?", agentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return policy.Policy{}, agentpayerrors.NotFound("policy", agentID)
		}
		return policy.Policy{}, agentpayerrors.Internal(err)
	}
	var p policy.Policy
	if err := json.Unmarshal([]byte(m.DataJSON), &p); err != nil {
		return policy.Policy{}, agentpayerrors.Internal(err)
	}
	return p, nil
}

func (r *PolicyRepository) Put(ctx context.Context, p policy.Policy) error {
	data, err := json.Marshal(p)
	if err != nil {
		return agentpayerrors.Internal(err)
	}
	m := policyModel{AgentID: p.AgentID, PolicyID: p.PolicyID, DataJSON: string(data)}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

var _ repo.PolicyRepository = (*PolicyRepository)(nil)
