package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/holds"
)

// HoldRepository is a gorm-backed repo.HoldRepository.
type HoldRepository struct{ db *gorm.DB }

func NewHoldRepository(db *gorm.DB) *HoldRepository { return &HoldRepository{db: db} }

func holdToModel(h *holds.Hold) holdModel {
	return holdModel{
		HoldID: h.HoldID, WalletID: h.WalletID, AmountMinor: h.AmountMinor,
		Chain: h.Chain, Token: h.Token, State: string(h.State),
		CreatedAt: h.CreatedAt, ExpiresAt: h.ExpiresAt,
		CapturedAmountMinor: h.CapturedAmountMinor, CaptureTxID: h.CaptureTxID,
	}
}

func modelToHold(m holdModel) *holds.Hold {
	return &holds.Hold{
		HoldID: m.HoldID, WalletID: m.WalletID, AmountMinor: m.AmountMinor,
		Chain: m.Chain, Token: m.Token, State: holds.State(m.State),
		CreatedAt: m.CreatedAt, ExpiresAt: m.ExpiresAt,
		CapturedAmountMinor: m.CapturedAmountMinor, CaptureTxID: m.CaptureTxID,
	}
}

func (r *HoldRepository) Get(ctx context.Context, holdID string) (*holds.Hold, error) {
	var m holdModel
	if err := r.db.WithContext(ctx).First(&m, "hold_id = ?", holdID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, agentpayerrors.NotFound("hold", holdID)
		}
		return nil, agentpayerrors.Internal(err)
	}
	return modelToHold(m), nil
}

func (r *HoldRepository) Put(ctx context.Context, h *holds.Hold) error {
	m := holdToModel(h)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hold_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *HoldRepository) ListActive(ctx context.Context, walletID string) ([]*holds.Hold, error) {
	var rows []holdModel
	if err := r.db.WithContext(ctx).Where("wallet_id = ? AND state = ?", walletID, string(holds.StateActive)).Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]*holds.Hold, len(rows))
	for i, m := range rows {
		out[i] = modelToHold(m)
	}
	return out, nil
}

func (r *HoldRepository) ListExpirable(ctx context.Context, before int64) ([]*holds.Hold, error) {
	var rows []holdModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND expires_at <= to_timestamp(?)", string(holds.StateActive), before).
		Find(&rows).Error
	if err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]*holds.Hold, len(rows))
	for i, m := range rows {
		out[i] = modelToHold(m)
	}
	return out, nil
}

var _ repo.HoldRepository = (*HoldRepository)(nil)
