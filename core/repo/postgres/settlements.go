package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/settlement"
)

// SettlementRepository is a gorm-backed repo.SettlementRepository.
type SettlementRepository struct{ db *gorm.DB }

func NewSettlementRepository(db *gorm.DB) *SettlementRepository { return &SettlementRepository{db: db} }

func settlementToModel(s settlement.Settlement) settlementModel {
	return settlementModel{
		SettlementID: s.SettlementID, EscrowID: s.EscrowID, Type: string(s.Type),
		Chain: s.Chain, Token: s.Token, AmountMinor: s.AmountMinor,
		TxHash: s.TxHash, LedgerTxID: s.LedgerTxID, ExplorerURL: s.ExplorerURL,
		AuditHash: s.AuditHash, SettledAt: s.SettledAt,
	}
}

func modelToSettlement(m settlementModel) settlement.Settlement {
	return settlement.Settlement{
		SettlementID: m.SettlementID, EscrowID: m.EscrowID, Type: settlement.Type(m.Type),
		Chain: m.Chain, Token: m.Token, AmountMinor: m.AmountMinor,
		TxHash: m.TxHash, LedgerTxID: m.LedgerTxID, ExplorerURL: m.ExplorerURL,
		AuditHash: m.AuditHash, SettledAt: m.SettledAt,
	}
}

func (r *SettlementRepository) Get(ctx context.Context, settlementID string) (settlement.Settlement, error) {
	var m settlementModel
	if err := r.db.WithContext(ctx).First(&m, "settlement_id = ?", settlementID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return settlement.Settlement{}, agentpayerrors.NotFound("settlement", settlementID)
		}
		return settlement.Settlement{}, agentpayerrors.Internal(err)
	}
	return modelToSettlement(m), nil
}

func (r *SettlementRepository) Put(ctx context.Context, s settlement.Settlement) error {
	m := settlementToModel(s)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "settlement_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *SettlementRepository) ListByEscrow(ctx context.Context, escrowID string) ([]settlement.Settlement, error) {
	var rows []settlementModel
	if err := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]settlement.Settlement, len(rows))
	for i, m := range rows {
		out[i] = modelToSettlement(m)
	}
	return out, nil
}

var _ repo.SettlementRepository = (*SettlementRepository)(nil)
