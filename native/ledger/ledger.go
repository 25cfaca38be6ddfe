// Package ledger implements the append-only double-entry ledger (C10):
// every settlement writes exactly one debit and one credit sharing a
// tx_id, and existing entries are never mutated — corrections are new
// compensating entries.
package ledger

import (
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// EntryType distinguishes the two sides of a settlement.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// EntryStatus reflects chain finality as reported by the executor.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusConfirmed EntryStatus = "confirmed"
)

// Entry is one LedgerEntry.
type Entry struct {
	EntryID     string
	TxID        string
	AccountID   string
	EntryType   EntryType
	AmountMinor int64
	Currency    string
	Chain       string
	ChainTxHash string
	Metadata    map[string]string
	Status      EntryStatus
	CreatedAt   time.Time
}

// Ledger is an append-only, in-memory store of ledger entries. The
// orchestrator takes a *Ledger directly as its ledger dependency.
type Ledger struct {
	entries []Entry
	genID   func() string
}

// New constructs an empty Ledger. genID supplies entry/tx identifiers;
// callers typically pass a uuid.NewString-backed generator.
func New(genID func() string) *Ledger {
	return &Ledger{genID: genID}
}

// AppendSettlement writes a matched debit on debitAccount and credit on
// creditAccount, sharing one tx_id, in a single call so the two entries
// are always appended together. It is the only way to add entries to a
// Ledger: there is no update path.
func (l *Ledger) AppendSettlement(debitAccount, creditAccount string, amountMinor int64, currency, chain, chainTxHash string, status EntryStatus, now time.Time) (txID string, entries []Entry, err error) {
	if amountMinor <= 0 {
		return "", nil, agentpayerrors.Validation("settlement amount must be positive, got %d", amountMinor)
	}
	if debitAccount == creditAccount {
		return "", nil, agentpayerrors.Validation("debit and credit accounts must differ, got %q", debitAccount)
	}

	txID = l.genID()
	debit := Entry{
		EntryID: l.genID(), TxID: txID, AccountID: debitAccount, EntryType: EntryDebit,
		AmountMinor: amountMinor, Currency: currency, Chain: chain, ChainTxHash: chainTxHash,
		Status: status, CreatedAt: now,
	}
	credit := Entry{
		EntryID: l.genID(), TxID: txID, AccountID: creditAccount, EntryType: EntryCredit,
		AmountMinor: amountMinor, Currency: currency, Chain: chain, ChainTxHash: chainTxHash,
		Status: status, CreatedAt: now,
	}
	l.entries = append(l.entries, debit, credit)
	return txID, []Entry{debit, credit}, nil
}

// EntriesForTx returns every entry sharing txID, in append order.
func (l *Ledger) EntriesForTx(txID string) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if e.TxID == txID {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the most recently appended entries, newest first, up to
// limit.
func (l *Ledger) Recent(limit int) []Entry {
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Entry, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.entries[len(l.entries)-1-i]
	}
	return out
}

// VerifyConservation checks that, for every tx_id present, the sum of
// debit amounts equals the sum of credit amounts and both sides share one
// currency. It is a consistency check for tests and audits, not something
// the append path itself needs to call since AppendSettlement can only
// ever produce a balanced pair.
func (l *Ledger) VerifyConservation() error {
	type totals struct {
		debit, credit int64
		currency      string
	}
	byTx := make(map[string]*totals)
	for _, e := range l.entries {
		t, ok := byTx[e.TxID]
		if !ok {
			t = &totals{currency: e.Currency}
			byTx[e.TxID] = t
		}
		if t.currency != e.Currency {
			return agentpayerrors.Internal(nil).WithDetail("tx_id", e.TxID).WithDetail("reason", "currency_mismatch")
		}
		switch e.EntryType {
		case EntryDebit:
			t.debit += e.AmountMinor
		case EntryCredit:
			t.credit += e.AmountMinor
		}
	}
	for txID, t := range byTx {
		if t.debit != t.credit {
			return agentpayerrors.Internal(nil).WithDetail("tx_id", txID).WithDetail("reason", "unbalanced")
		}
	}
	return nil
}
