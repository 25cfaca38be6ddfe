// Package repo defines the repository contracts (C16): the persistence
// boundary every domain component writes through. Repositories persist
// snapshots of entities that are created and mutated exclusively by
// their owning component — a repository never enforces or re-derives a
// domain invariant, it only stores and retrieves.
package repo

import (
	"context"

	"github.com/sardis-labs/agentpay/native/escrow"
	"github.com/sardis-labs/agentpay/native/holds"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/policy"
	"github.com/sardis-labs/agentpay/native/settlement"
	"github.com/sardis-labs/agentpay/native/wallet"
	"github.com/sardis-labs/agentpay/native/webhook"
)

// AgentRecord is the stored identity/status row for one agent.
type AgentRecord struct {
	AgentID        string
	OrganizationID string
	Domain         string
	KYALevel       string
	IsActive       bool
}

// AgentRepository persists agent identity/status records. Resolving an
// agent's currently valid signing keys is native/keyrotation.Manager's
// job, not the repository's.
type AgentRepository interface {
	Get(ctx context.Context, agentID string) (AgentRecord, error)
	Put(ctx context.Context, rec AgentRecord) error
	List(ctx context.Context, organizationID string) ([]AgentRecord, error)
}

// WalletRepository persists wallet records.
type WalletRepository interface {
	settlement.WalletRepositoryPort
	Get(ctx context.Context, walletID string) (wallet.Wallet, error)
	Put(ctx context.Context, w wallet.Wallet) error
	ListByAgent(ctx context.Context, agentID string) ([]wallet.Wallet, error)
}

// PolicyRepository persists spending policies, keyed by agent.
type PolicyRepository interface {
	Get(ctx context.Context, agentID string) (policy.Policy, error)
	Put(ctx context.Context, p policy.Policy) error
}

// HoldRepository persists pre-authorization holds.
type HoldRepository interface {
	Get(ctx context.Context, holdID string) (*holds.Hold, error)
	Put(ctx context.Context, h *holds.Hold) error
	ListActive(ctx context.Context, walletID string) ([]*holds.Hold, error)
	ListExpirable(ctx context.Context, before int64) ([]*holds.Hold, error)
}

// WebhookRepository persists webhook subscriptions and their delivery
// attempt history.
type WebhookRepository interface {
	GetSubscription(ctx context.Context, subscriptionID string) (webhook.Subscription, error)
	PutSubscription(ctx context.Context, sub webhook.Subscription) error
	ListActiveSubscriptions(ctx context.Context) ([]webhook.Subscription, error)
	RecordAttempt(ctx context.Context, attempt webhook.Attempt) error
	AttemptsForEvent(ctx context.Context, eventID string) ([]webhook.Attempt, error)
}

// EscrowRepository persists A2A escrows.
type EscrowRepository interface {
	Get(ctx context.Context, escrowID string) (*escrow.Escrow, error)
	Put(ctx context.Context, e *escrow.Escrow) error
	ListExpirable(ctx context.Context, before int64) ([]*escrow.Escrow, error)
}

// SettlementRepository persists settlement records produced by C12.
type SettlementRepository interface {
	Get(ctx context.Context, settlementID string) (settlement.Settlement, error)
	Put(ctx context.Context, s settlement.Settlement) error
	ListByEscrow(ctx context.Context, escrowID string) ([]settlement.Settlement, error)
}

// LedgerRepository persists double-entry ledger entries.
type LedgerRepository interface {
	Append(ctx context.Context, entries []ledger.Entry) error
	EntriesForTx(ctx context.Context, txID string) ([]ledger.Entry, error)
	EntriesForAccount(ctx context.Context, accountID string, limit int) ([]ledger.Entry, error)
}
