package postgres

import (
	"context"
	"math/big"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sardis-labs/agentpay/crypto"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/escrow"
)

// EscrowRepository is a gorm-backed repo.EscrowRepository.
type EscrowRepository struct{ db *gorm.DB }

func NewEscrowRepository(db *gorm.DB) *EscrowRepository { return &EscrowRepository{db: db} }

func escrowToModel(e *escrow.Escrow) escrowModel {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return escrowModel{
		EscrowID: e.ID, Payer: e.Payer.String(), Payee: e.Payee.String(),
		Chain: e.Chain, Token: e.Token, AmountMinor: amount, Status: uint8(e.Status),
		CreatedAt: e.CreatedAt, ExpiresAt: e.ExpiresAt,
		FundedTxHash: e.FundedTxHash, DeliveryProofHash: e.DeliveryProofHash, DisputeReason: e.DisputeReason,
	}
}

func modelToEscrow(m escrowModel) (*escrow.Escrow, error) {
	payer, err := crypto.DecodeAddress(m.Payer)
	if err != nil {
		return nil, err
	}
	payee, err := crypto.DecodeAddress(m.Payee)
	if err != nil {
		return nil, err
	}
	amount, ok := new(big.Int).SetString(m.AmountMinor, 10)
	if !ok {
		amount = big.NewInt(0)
	}
	return &escrow.Escrow{
		ID: m.EscrowID, Payer: payer, Payee: payee, Chain: m.Chain, Token: m.Token,
		Amount: amount, Status: escrow.Status(m.Status),
		CreatedAt: m.CreatedAt, ExpiresAt: m.ExpiresAt,
		FundedTxHash: m.FundedTxHash, DeliveryProofHash: m.DeliveryProofHash, DisputeReason: m.DisputeReason,
	}, nil
}

func (r *EscrowRepository) Get(ctx context.Context, escrowID string) (*escrow.Escrow, error) {
	var m escrowModel
	if err := r.db.WithContext(ctx).First(&m, "escrow_id = ?", escrowID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, agentpayerrors.NotFound("escrow", escrowID)
		}
		return nil, agentpayerrors.Internal(err)
	}
	e, err := modelToEscrow(m)
	if err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	return e, nil
}

func (r *EscrowRepository) Put(ctx context.Context, e *escrow.Escrow) error {
	m := escrowToModel(e)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "escrow_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *EscrowRepository) ListExpirable(ctx context.Context, before int64) ([]*escrow.Escrow, error) {
	var rows []escrowModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at <= ?", []uint8{uint8(escrow.StatusCreated), uint8(escrow.StatusFunded)}, before).
		Find(&rows).Error
	if err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]*escrow.Escrow, 0, len(rows))
	for _, m := range rows {
		e, err := modelToEscrow(m)
		if err != nil {
			return nil, agentpayerrors.Internal(err)
		}
		out = append(out, e)
	}
	return out, nil
}

var _ repo.EscrowRepository = (*EscrowRepository)(nil)
