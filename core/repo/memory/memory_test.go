package memory

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/crypto"
	"github.com/sardis-labs/agentpay/native/escrow"
	"github.com/sardis-labs/agentpay/native/holds"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/policy"
	"github.com/sardis-labs/agentpay/native/settlement"
	"github.com/sardis-labs/agentpay/native/wallet"
	"github.com/sardis-labs/agentpay/native/webhook"

	"github.com/stretchr/testify/require"
)

func addrFor(t *testing.T, fill byte) crypto.Address {
	t.Helper()
	b := make([]byte, 20)
	for i := range b {
		b[i] = fill
	}
	return crypto.MustNewAddress(crypto.AgentPrefix, b)
}

func bigInt(v int64) *big.Int { return big.NewInt(v) }

// Compile-time conformance to the repo.* interfaces.
var (
	_ repo.AgentRepository      = (*AgentRepository)(nil)
	_ repo.WalletRepository     = (*WalletRepository)(nil)
	_ repo.PolicyRepository     = (*PolicyRepository)(nil)
	_ repo.HoldRepository       = (*HoldRepository)(nil)
	_ repo.WebhookRepository    = (*WebhookRepository)(nil)
	_ repo.EscrowRepository     = (*EscrowRepository)(nil)
	_ repo.SettlementRepository = (*SettlementRepository)(nil)
	_ repo.LedgerRepository     = (*LedgerRepository)(nil)
)

func TestAgentRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewAgentRepository()
	_, err := r.Get(ctx, "agent-1")
	require.Error(t, err)

	require.NoError(t, r.Put(ctx, repo.AgentRecord{AgentID: "agent-1", OrganizationID: "org-1"}))
	rec, err := r.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, "org-1", rec.OrganizationID)

	listed, err := r.List(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestWalletRepositoryWalletForAgentReturnsFirstRegistered(t *testing.T) {
	ctx := context.Background()
	r := NewWalletRepository()
	require.NoError(t, r.Put(ctx, wallet.Wallet{WalletID: "w-1", AgentID: "agent-1"}))

	w, err := r.WalletForAgent("agent-1")
	require.NoError(t, err)
	require.Equal(t, "w-1", w.WalletID)

	_, err = r.WalletForAgent("agent-missing")
	require.Error(t, err)
}

func TestPolicyRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewPolicyRepository()
	require.NoError(t, r.Put(ctx, policy.Policy{AgentID: "agent-1", LimitPerTxMinor: 1000}))

	p, err := r.Get(ctx, "agent-1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), p.LimitPerTxMinor)
}

func TestHoldRepositoryListActiveAndExpirable(t *testing.T) {
	ctx := context.Background()
	r := NewHoldRepository()
	now := time.Unix(1_700_000_000, 0).UTC()

	active, err := holds.Create("h-1", "wallet-1", 100, "base", "USDC", now, time.Hour, 0)
	require.NoError(t, err)
	require.NoError(t, r.Put(ctx, active))

	expired, err := holds.Create("h-2", "wallet-1", 50, "base", "USDC", now.Add(-2*time.Hour), time.Hour, 0)
	require.NoError(t, err)
	require.NoError(t, r.Put(ctx, expired))

	listActive, err := r.ListActive(ctx, "wallet-1")
	require.NoError(t, err)
	require.Len(t, listActive, 2)

	expirable, err := r.ListExpirable(ctx, now.Unix())
	require.NoError(t, err)
	require.Len(t, expirable, 1)
	require.Equal(t, "h-2", expirable[0].HoldID)
}

func TestWebhookRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := NewWebhookRepository()
	require.NoError(t, r.PutSubscription(ctx, webhook.Subscription{SubscriptionID: "sub-1", IsActive: true}))
	require.NoError(t, r.PutSubscription(ctx, webhook.Subscription{SubscriptionID: "sub-2", IsActive: false}))

	active, err := r.ListActiveSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, r.RecordAttempt(ctx, webhook.Attempt{AttemptID: "a-1", EventID: "evt-1"}))
	attempts, err := r.AttemptsForEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
}

func TestEscrowRepositoryListExpirable(t *testing.T) {
	ctx := context.Background()
	r := NewEscrowRepository()
	e, err := escrow.Create("e-1", addrFor(t, 1), addrFor(t, 2), "base", "USDC", bigInt(100), 0, 100)
	require.NoError(t, err)
	require.NoError(t, r.Put(ctx, e))

	expirable, err := r.ListExpirable(ctx, 200)
	require.NoError(t, err)
	require.Len(t, expirable, 1)

	got, err := r.Get(ctx, "e-1")
	require.NoError(t, err)
	require.Equal(t, escrow.StatusCreated, got.Status)
}

func TestSettlementRepositoryListByEscrow(t *testing.T) {
	ctx := context.Background()
	r := NewSettlementRepository()
	require.NoError(t, r.Put(ctx, settlement.Settlement{SettlementID: "s-1", EscrowID: "e-1"}))
	require.NoError(t, r.Put(ctx, settlement.Settlement{SettlementID: "s-2", EscrowID: "e-2"}))

	list, err := r.ListByEscrow(ctx, "e-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestLedgerRepositoryAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	r := NewLedgerRepository()
	require.NoError(t, r.Append(ctx, []ledger.Entry{
		{EntryID: "1", TxID: "tx-1", AccountID: "acct-a", EntryType: ledger.EntryDebit, AmountMinor: 100},
		{EntryID: "2", TxID: "tx-1", AccountID: "acct-b", EntryType: ledger.EntryCredit, AmountMinor: 100},
	}))

	entries, err := r.EntriesForTx(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	forAccount, err := r.EntriesForAccount(ctx, "acct-a", 0)
	require.NoError(t, err)
	require.Len(t, forAccount, 1)
}
