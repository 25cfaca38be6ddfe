package settlement

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/sardis-labs/agentpay/crypto"
	"github.com/sardis-labs/agentpay/native/escrow"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/wallet"
	"github.com/stretchr/testify/require"
)

func addr(fill byte) crypto.Address {
	b := make([]byte, 20)
	for i := range b {
		b[i] = fill
	}
	return crypto.MustNewAddress(crypto.AgentPrefix, b)
}

type fakeWallets struct {
	byAgent map[string]wallet.Wallet
}

func (f fakeWallets) WalletForAgent(agentID string) (wallet.Wallet, error) {
	w, ok := f.byAgent[agentID]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("no wallet for %s", agentID)
	}
	return w, nil
}

type fakeExecutor struct {
	receipt Receipt
	err     error
	calls   int
}

func (f *fakeExecutor) DispatchPayment(chain, token, destination string, amountMinor int64, nonce string) (Receipt, error) {
	f.calls++
	if f.err != nil {
		return Receipt{}, f.err
	}
	return f.receipt, nil
}

func seqGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func releasedEscrow(t *testing.T) *escrow.Escrow {
	t.Helper()
	e, err := escrow.Create("escrow-1", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(500), 0, 1000)
	require.NoError(t, err)
	funded, err := e.Fund("0xfund")
	require.NoError(t, err)
	delivered, err := funded.ConfirmDelivery("proof")
	require.NoError(t, err)
	released, err := delivered.Release()
	require.NoError(t, err)
	return released
}

func TestSettleNonceIsDeterministicPerEscrow(t *testing.T) {
	require.Equal(t, SettleNonce("escrow-1"), SettleNonce("escrow-1"))
	require.NotEqual(t, SettleNonce("escrow-1"), SettleNonce("escrow-2"))
}

func TestSettleOnChainDispatchesAndRecordsLedgerEntries(t *testing.T) {
	esc := releasedEscrow(t)
	payer := addr(0x01).String()
	payee := addr(0x02).String()

	wallets := fakeWallets{byAgent: map[string]wallet.Wallet{
		payer: {WalletID: "w-payer", IsActive: true},
		payee: {WalletID: "w-payee", IsActive: true, Addresses: map[string]string{"base": "0xdest"}},
	}}
	exec := &fakeExecutor{receipt: Receipt{TxHash: "0xsettle", Block: 42}}
	l := ledger.New(seqGen())
	engine := NewEngine(wallets, exec, l, seqGen())

	settlement, err := engine.SettleOnChain(esc, time.Unix(1_700_000_000, 0).UTC())
	require.NoError(t, err)
	require.Equal(t, TypeOnChain, settlement.Type)
	require.Equal(t, "0xsettle", settlement.TxHash)
	require.Equal(t, int64(500), settlement.AmountMinor)
	require.NotEmpty(t, settlement.AuditHash)
	require.Equal(t, "https://basescan.org/tx/0xsettle", settlement.ExplorerURL)
	require.Equal(t, 1, exec.calls)

	entries := l.EntriesForTx(settlement.LedgerTxID)
	require.Len(t, entries, 2)
	require.NoError(t, l.VerifyConservation())
}

func TestSettleOnChainRejectsNonReleasedEscrow(t *testing.T) {
	e, err := escrow.Create("escrow-2", addr(0x01), addr(0x02), "base", "USDC", big.NewInt(100), 0, 1000)
	require.NoError(t, err)

	wallets := fakeWallets{byAgent: map[string]wallet.Wallet{}}
	exec := &fakeExecutor{}
	l := ledger.New(seqGen())
	engine := NewEngine(wallets, exec, l, seqGen())

	_, err = engine.SettleOnChain(e, time.Now())
	require.Error(t, err)
	require.Equal(t, 0, exec.calls)
}

func TestSettleOnChainRejectsFrozenPayerWallet(t *testing.T) {
	esc := releasedEscrow(t)
	payer := addr(0x01).String()
	payee := addr(0x02).String()

	wallets := fakeWallets{byAgent: map[string]wallet.Wallet{
		payer: {WalletID: "w-payer", IsActive: true, IsFrozen: true},
		payee: {WalletID: "w-payee", IsActive: true, Addresses: map[string]string{"base": "0xdest"}},
	}}
	exec := &fakeExecutor{receipt: Receipt{TxHash: "0xsettle"}}
	l := ledger.New(seqGen())
	engine := NewEngine(wallets, exec, l, seqGen())

	_, err := engine.SettleOnChain(esc, time.Now())
	require.Error(t, err)
	require.Equal(t, 0, exec.calls)
}

func TestSettleOnChainRejectsPayeeMissingChainAddress(t *testing.T) {
	esc := releasedEscrow(t)
	payer := addr(0x01).String()
	payee := addr(0x02).String()

	wallets := fakeWallets{byAgent: map[string]wallet.Wallet{
		payer: {WalletID: "w-payer", IsActive: true},
		payee: {WalletID: "w-payee", IsActive: true, Addresses: map[string]string{}},
	}}
	exec := &fakeExecutor{receipt: Receipt{TxHash: "0xsettle"}}
	l := ledger.New(seqGen())
	engine := NewEngine(wallets, exec, l, seqGen())

	_, err := engine.SettleOnChain(esc, time.Now())
	require.Error(t, err)
	require.Equal(t, 0, exec.calls)
}

func TestSettleOnChainWrapsExecutorFailureAsTransactionFailed(t *testing.T) {
	esc := releasedEscrow(t)
	payer := addr(0x01).String()
	payee := addr(0x02).String()

	wallets := fakeWallets{byAgent: map[string]wallet.Wallet{
		payer: {WalletID: "w-payer", IsActive: true},
		payee: {WalletID: "w-payee", IsActive: true, Addresses: map[string]string{"base": "0xdest"}},
	}}
	exec := &fakeExecutor{err: fmt.Errorf("rpc timeout")}
	l := ledger.New(seqGen())
	engine := NewEngine(wallets, exec, l, seqGen())

	_, err := engine.SettleOnChain(esc, time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "transaction failed")
}

func TestSettleOffChainSkipsExecutorAndRecordsLedgerEntries(t *testing.T) {
	esc := releasedEscrow(t)
	l := ledger.New(seqGen())
	exec := &fakeExecutor{}
	engine := NewEngine(fakeWallets{}, exec, l, seqGen())

	settlement, err := engine.SettleOffChain(esc, time.Unix(1_700_000_000, 0).UTC())
	require.NoError(t, err)
	require.Equal(t, TypeOffChain, settlement.Type)
	require.Empty(t, settlement.TxHash)
	require.Equal(t, 0, exec.calls)

	entries := l.EntriesForTx(settlement.LedgerTxID)
	require.Len(t, entries, 2)
	require.NoError(t, l.VerifyConservation())
}

func TestExplorerURLUnknownChainIsEmpty(t *testing.T) {
	require.Empty(t, ExplorerURL("solana", "0xabc"))
	require.Empty(t, ExplorerURL("base", ""))
	require.Equal(t, "https://polygonscan.com/tx/0xabc", ExplorerURL("polygon", "0xabc"))
}
