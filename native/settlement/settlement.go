// Package settlement implements the A2A settlement engine (C12): moving a
// RELEASED escrow's value to the payee, either on-chain through a
// ChainExecutorPort or off-chain as a ledger-only transfer, always
// followed by a matched debit/credit ledger entry.
package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sardis-labs/agentpay/native/escrow"
	"github.com/sardis-labs/agentpay/native/ledger"
	"github.com/sardis-labs/agentpay/native/wallet"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// Type distinguishes how a settlement moved value.
type Type string

const (
	TypeOnChain  Type = "on_chain"
	TypeOffChain Type = "off_chain"
)

// ChainExecutorPort dispatches a synthesized payment on-chain.
type ChainExecutorPort interface {
	DispatchPayment(chain, token, destination string, amountMinor int64, nonce string) (Receipt, error)
}

// Receipt is what a chain executor returns on successful dispatch.
type Receipt struct {
	TxHash string
	Block  int64
}

// WalletRepositoryPort resolves wallets by agent for settlement-time
// eligibility checks.
type WalletRepositoryPort interface {
	WalletForAgent(agentID string) (wallet.Wallet, error)
}

// Settlement is a recorded release of a RELEASED escrow's value.
type Settlement struct {
	SettlementID string
	EscrowID     string
	Type         Type
	Chain        string
	Token        string
	AmountMinor  int64
	TxHash       string
	LedgerTxID   string
	ExplorerURL  string
	AuditHash    string
	SettledAt    time.Time
}

// Engine settles RELEASED escrows.
type Engine struct {
	wallets  WalletRepositoryPort
	executor ChainExecutorPort
	ledger   *ledger.Ledger
	genID    func() string
}

// NewEngine constructs a settlement Engine.
func NewEngine(wallets WalletRepositoryPort, executor ChainExecutorPort, l *ledger.Ledger, genID func() string) *Engine {
	return &Engine{wallets: wallets, executor: executor, ledger: l, genID: genID}
}

// SettleNonce derives the deterministic nonce for an escrow's synthesized
// settlement payment: H("a2a:settle:" + escrow_id).
func SettleNonce(escrowID string) string {
	sum := sha256.Sum256([]byte("a2a:settle:" + escrowID))
	return hex.EncodeToString(sum[:])
}

// auditHash hashes the essential fields of a settlement for inclusion as
// the synthesized payment mandate's audit_hash.
func auditHash(escrowID, chain, token string, amountMinor int64, destination string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%s", escrowID, chain, token, amountMinor, destination)))
	return hex.EncodeToString(sum[:])
}

// SettleOnChain settles a RELEASED escrow by dispatching a synthesized
// payment through the chain executor, then recording a matched ledger
// debit/credit.
func (e *Engine) SettleOnChain(esc *escrow.Escrow, now time.Time) (*Settlement, error) {
	if esc.Status != escrow.StatusReleased {
		return nil, agentpayerrors.Conflict("escrow %s is %s, not RELEASED", esc.ID, esc.Status)
	}

	payerWallet, err := e.wallets.WalletForAgent(esc.Payer.String())
	if err != nil {
		return nil, err
	}
	payeeWallet, err := e.wallets.WalletForAgent(esc.Payee.String())
	if err != nil {
		return nil, err
	}
	if !payerWallet.Usable() {
		return nil, agentpayerrors.Validation("payer wallet %s is not usable (frozen or inactive)", payerWallet.WalletID)
	}
	if !payeeWallet.IsActive {
		return nil, agentpayerrors.Validation("payee wallet %s is not active", payeeWallet.WalletID)
	}
	destination, err := payeeWallet.AddressFor(esc.Chain)
	if err != nil {
		return nil, err
	}

	nonce := SettleNonce(esc.ID)
	audit := auditHash(esc.ID, esc.Chain, esc.Token, esc.Amount.Int64(), destination)

	receipt, err := e.executor.DispatchPayment(esc.Chain, esc.Token, destination, esc.Amount.Int64(), nonce)
	if err != nil {
		return nil, agentpayerrors.TransactionFailed(esc.Chain, err.Error())
	}

	txID, _, err := e.ledger.AppendSettlement(
		"escrow:"+esc.ID, "agent:"+esc.Payee.String(),
		esc.Amount.Int64(), esc.Token, esc.Chain, receipt.TxHash, ledger.StatusConfirmed, now)
	if err != nil {
		return nil, err
	}

	return &Settlement{
		SettlementID: e.genID(), EscrowID: esc.ID, Type: TypeOnChain,
		Chain: esc.Chain, Token: esc.Token, AmountMinor: esc.Amount.Int64(),
		TxHash: receipt.TxHash, LedgerTxID: txID, AuditHash: audit,
		ExplorerURL: ExplorerURL(esc.Chain, receipt.TxHash), SettledAt: now,
	}, nil
}

// SettleOffChain settles a RELEASED escrow as a ledger-only transfer,
// bypassing the chain executor entirely.
func (e *Engine) SettleOffChain(esc *escrow.Escrow, now time.Time) (*Settlement, error) {
	if esc.Status != escrow.StatusReleased {
		return nil, agentpayerrors.Conflict("escrow %s is %s, not RELEASED", esc.ID, esc.Status)
	}

	settlementID := e.genID()
	txID, _, err := e.ledger.AppendSettlement(
		"escrow:"+esc.ID, "agent:"+esc.Payee.String(),
		esc.Amount.Int64(), esc.Token, esc.Chain, "", ledger.StatusConfirmed, now)
	if err != nil {
		return nil, err
	}

	return &Settlement{
		SettlementID: settlementID, EscrowID: esc.ID, Type: TypeOffChain,
		Chain: esc.Chain, Token: esc.Token, AmountMinor: esc.Amount.Int64(),
		LedgerTxID: txID, SettledAt: now,
	}, nil
}

// ExplorerURL derives a block explorer URL for a transaction hash on a
// given chain. Unknown chains return an empty string.
func ExplorerURL(chain, txHash string) string {
	if txHash == "" {
		return ""
	}
	bases := map[string]string{
		"base":     "https://basescan.org/tx/",
		"ethereum": "https://etherscan.io/tx/",
		"polygon":  "https://polygonscan.com/tx/",
		"arbitrum": "https://arbiscan.io/tx/",
		"optimism": "https://optimistic.etherscan.io/tx/",
	}
	base, ok := bases[chain]
	if !ok {
		return ""
	}
	return base + txHash
}
