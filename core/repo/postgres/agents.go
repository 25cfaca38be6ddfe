package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
)

// AgentRepository is a gorm-backed repo.AgentRepository.
type AgentRepository struct{ db *gorm.DB }

func NewAgentRepository(db *gorm.DB) *AgentRepository { return &AgentRepository{db: db} }

func (r *AgentRepository) Get(ctx context.Context, agentID string) (repo.AgentRecord, error) {
	var m agentModel
	if err := r.db.WithContext(ctx).First(&m, "agent_id = ?", agentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return repo.AgentRecord{}, agentpayerrors.NotFound("agent", agentID)
		}
		return repo.AgentRecord{}, agentpayerrors.Internal(err)
	}
	return repo.AgentRecord{
		AgentID: m.AgentID, OrganizationID: m.OrganizationID,
		Domain: m.Domain, KYALevel: m.KYALevel, IsActive: m.IsActive,
	}, nil
}

func (r *AgentRepository) Put(ctx context.Context, rec repo.AgentRecord) error {
	m := agentModel{
		AgentID: rec.AgentID, OrganizationID: rec.OrganizationID,
		Domain: rec.Domain, KYALevel: rec.KYALevel, IsActive: rec.IsActive,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_id"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *AgentRepository) List(ctx context.Context, organizationID string) ([]repo.AgentRecord, error) {
	var rows []agentModel
	if err := r.db.WithContext(ctx).Where("organization_id = ?", organizationID).Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]repo.AgentRecord, len(rows))
	for i, m := range rows {
		out[i] = repo.AgentRecord{
			AgentID: m.AgentID, OrganizationID: m.OrganizationID,
			Domain: m.Domain, KYALevel: m.KYALevel, IsActive: m.IsActive,
		}
	}
	return out, nil
}

var _ repo.AgentRepository = (*AgentRepository)(nil)
