package memory

import (
	"context"
	"sync"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/wallet"
)

// WalletRepository is an in-memory repo.WalletRepository.
type WalletRepository struct {
	mu      sync.RWMutex
	wallets map[string]wallet.Wallet
	byAgent map[string]string // agentID -> walletID, first wallet registered wins
}

// NewWalletRepository constructs an empty WalletRepository.
func NewWalletRepository() *WalletRepository {
	return &WalletRepository{
		wallets: make(map[string]wallet.Wallet),
		byAgent: make(map[string]string),
	}
}

func (r *WalletRepository) Get(ctx context.Context, walletID string) (wallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return wallet.Wallet{}, agentpayerrors.NotFound("wallet", walletID)
	}
	return w, nil
}

func (r *WalletRepository) Put(ctx context.Context, w wallet.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.WalletID] = w
	if _, ok := r.byAgent[w.AgentID]; !ok {
		r.byAgent[w.AgentID] = w.WalletID
	}
	return nil
}

func (r *WalletRepository) ListByAgent(ctx context.Context, agentID string) ([]wallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []wallet.Wallet
	for _, w := range r.wallets {
		if w.AgentID == agentID {
			out = append(out, w)
		}
	}
	return out, nil
}

// WalletForAgent implements settlement.WalletRepositoryPort: the first
// wallet registered for agentID.
func (r *WalletRepository) WalletForAgent(agentID string) (wallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	walletID, ok := r.byAgent[agentID]
	if !ok {
		return wallet.Wallet{}, agentpayerrors.NotFound("wallet_for_agent", agentID)
	}
	return r.wallets[walletID], nil
}
