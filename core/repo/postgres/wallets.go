package postgres

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/wallet"
)

// WalletRepository is a gorm-backed repo.WalletRepository.
type WalletRepository struct{ db *gorm.DB }

func NewWalletRepository(db *gorm.DB) *WalletRepository { return &WalletRepository{db: db} }

func walletToModel(w wallet.Wallet) (walletModel, error) {
	addrJSON, err := json.Marshal(w.Addresses)
	if err != nil {
		return walletModel{}, err
	}
	return walletModel{
		WalletID: w.WalletID, AgentID: w.AgentID, AccountType: string(w.AccountType),
		AddressesJSON: string(addrJSON), LimitPerTxMinor: w.LimitPerTxMinor, LimitTotalMinor: w.LimitTotalMinor,
		IsActive: w.IsActive, IsFrozen: w.IsFrozen, FrozenAt: w.FrozenAt,
		FrozenBy: w.FrozenBy, FrozenReason: w.FrozenReason,
		CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	}, nil
}

func modelToWallet(m walletModel) (wallet.Wallet, error) {
	var addrs map[string]string
	if m.AddressesJSON != "" {
		if err := json.Unmarshal([]byte(m.AddressesJSON), &addrs); err != nil {
			return wallet.Wallet{}, err
		}
	}
	return wallet.Wallet{
		WalletID: m.WalletID, AgentID: m.AgentID, AccountType: wallet.AccountType(m.AccountType),
		Addresses: addrs, LimitPerTxMinor: m.LimitPerTxMinor, LimitTotalMinor: m.LimitTotalMinor,
		IsActive: m.IsActive, IsFrozen: m.IsFrozen, FrozenAt: m.FrozenAt,
		FrozenBy: m.FrozenBy, FrozenReason: m.FrozenReason,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}, nil
}

func (r *WalletRepository) Get(ctx context.Context, walletID string) (wallet.Wallet, error) {
	var m walletModel
	if err := r.db.WithContext(ctx).First(&m, "wallet_id = ?", walletID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return wallet.Wallet{}, agentpayerrors.NotFound("wallet", walletID)
		}
		return wallet.Wallet{}, agentpayerrors.Internal(err)
	}
	w, err := modelToWallet(m)
	if err != nil {
		return wallet.Wallet{}, agentpayerrors.Internal(err)
	}
	return w, nil
}

func (r *WalletRepository) Put(ctx context.Context, w wallet.Wallet) error {
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = time.Now()
	}
	m, err := walletToModel(w)
	if err != nil {
		return agentpayerrors.Internal(err)
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_id"}},
		UpdateAll: true,
	}).Create(&m).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *WalletRepository) ListByAgent(ctx context.Context, agentID string) ([]wallet.Wallet, error) {
	var rows []walletModel
	if err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]wallet.Wallet, 0, len(rows))
	for _, m := range rows {
		w, err := modelToWallet(m)
		if err != nil {
			return nil, agentpayerrors.Internal(err)
		}
		out = append(out, w)
	}
	return out, nil
}

// WalletForAgent implements settlement.WalletRepositoryPort: the oldest
// wallet on file for agentID.
func (r *WalletRepository) WalletForAgent(agentID string) (wallet.Wallet, error) {
	var m walletModel
	err := r.db.Where("agent_id = ?", agentID).Order("created_at asc").First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return wallet.Wallet{}, agentpayerrors.NotFound("wallet_for_agent", agentID)
		}
		return wallet.Wallet{}, agentpayerrors.Internal(err)
	}
	return modelToWallet(m)
}

var _ repo.WalletRepository = (*WalletRepository)(nil)
