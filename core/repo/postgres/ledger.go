package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/ledger"
)

// LedgerRepository is a gorm-backed repo.LedgerRepository. Like its
// in-memory counterpart it is a pure store: it never rejects an unbalanced
// write, trusting that callers only ever pass entries native/ledger has
// already validated.
type LedgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func entryToModel(e ledger.Entry) (ledgerEntryModel, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return ledgerEntryModel{}, err
	}
	return ledgerEntryModel{
		EntryID: e.EntryID, TxID: e.TxID, AccountID: e.AccountID, EntryType: string(e.EntryType),
		AmountMinor: e.AmountMinor, Currency: e.Currency, Chain: e.Chain, ChainTxHash: e.ChainTxHash,
		MetadataJSON: string(meta), Status: string(e.Status), CreatedAt: e.CreatedAt,
	}, nil
}

func modelToEntry(m ledgerEntryModel) (ledger.Entry, error) {
	var meta map[string]string
	if m.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(m.MetadataJSON), &meta); err != nil {
			return ledger.Entry{}, err
		}
	}
	return ledger.Entry{
		EntryID: m.EntryID, TxID: m.TxID, AccountID: m.AccountID, EntryType: ledger.EntryType(m.EntryType),
		AmountMinor: m.AmountMinor, Currency: m.Currency, Chain: m.Chain, ChainTxHash: m.ChainTxHash,
		Metadata: meta, Status: ledger.EntryStatus(m.Status), CreatedAt: m.CreatedAt,
	}, nil
}

func (r *LedgerRepository) Append(ctx context.Context, entries []ledger.Entry) error {
	rows := make([]ledgerEntryModel, len(entries))
	for i, e := range entries {
		m, err := entryToModel(e)
		if err != nil {
			return agentpayerrors.Internal(err)
		}
		rows[i] = m
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return agentpayerrors.Internal(err)
	}
	return nil
}

func (r *LedgerRepository) EntriesForTx(ctx context.Context, txID string) ([]ledger.Entry, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).Where("tx_id = ?", txID).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]ledger.Entry, len(rows))
	for i, m := range rows {
		e, err := modelToEntry(m)
		if err != nil {
			return nil, agentpayerrors.Internal(err)
		}
		out[i] = e
	}
	return out, nil
}

func (r *LedgerRepository) EntriesForAccount(ctx context.Context, accountID string, limit int) ([]ledger.Entry, error) {
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []ledgerEntryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, agentpayerrors.Internal(err)
	}
	out := make([]ledger.Entry, len(rows))
	for i, m := range rows {
		e, err := modelToEntry(m)
		if err != nil {
			return nil, agentpayerrors.Internal(err)
		}
		out[i] = e
	}
	return out, nil
}

var _ repo.LedgerRepository = (*LedgerRepository)(nil)
