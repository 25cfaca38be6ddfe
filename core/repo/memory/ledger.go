package memory

import (
	"context"
	"sync"

	"github.com/sardis-labs/agentpay/native/ledger"
)

// LedgerRepository is an in-memory repo.LedgerRepository. Unlike
// native/ledger.Ledger (which owns the append invariant), this adapter
// is a pure store — it never rejects an unbalanced write, trusting that
// callers only ever pass entries native/ledger already validated.
type LedgerRepository struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

// NewLedgerRepository constructs an empty LedgerRepository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

func (r *LedgerRepository) Append(ctx context.Context, entries []ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *LedgerRepository) EntriesForTx(ctx context.Context, txID string) ([]ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ledger.Entry
	for _, e := range r.entries {
		if e.TxID == txID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *LedgerRepository) EntriesForAccount(ctx context.Context, accountID string, limit int) ([]ledger.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ledger.Entry
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.entries[i].AccountID == accountID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}
