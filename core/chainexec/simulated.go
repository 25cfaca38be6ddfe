// Package chainexec provides chain-executor port implementations shared by
// the payment orchestrator (C9) and the A2A settlement engine (C12). The
// simulated executor keeps the same port abstraction a live RPC-backed
// executor would implement, returning deterministic tx_hash strings derived
// from the dispatch inputs rather than broadcasting anything.
package chainexec

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/sardis-labs/agentpay/core/orchestrator"
	"github.com/sardis-labs/agentpay/native/mandate"
	"github.com/sardis-labs/agentpay/native/settlement"
)

// Simulated implements orchestrator.ChainExecutorPort. It never touches a
// real chain; it is the default executor for dev/sandbox environments and
// for chain_mode=simulated.
type Simulated struct{}

// NewSimulated constructs a Simulated payment executor.
func NewSimulated() Simulated { return Simulated{} }

// DispatchPayment returns a deterministic receipt derived from the
// payment's mandate id, chain, token, destination, and amount.
func (Simulated) DispatchPayment(payment mandate.Payment) (orchestrator.Receipt, error) {
	hash, block := deterministicReceipt(fmt.Sprintf("%s|%s|%s|%s|%d",
		payment.MandateID, payment.Chain, payment.Token, payment.Destination, payment.AmountMinor))
	return orchestrator.Receipt{TxHash: hash, Block: block}, nil
}

// SimulatedSettlement implements settlement.ChainExecutorPort, the
// differently-shaped port the settlement engine uses to release escrows
// on-chain. It is a distinct type rather than a second method on Simulated
// because Go cannot overload DispatchPayment by signature on one receiver.
type SimulatedSettlement struct{}

// NewSimulatedSettlement constructs a Simulated settlement executor.
func NewSimulatedSettlement() SimulatedSettlement { return SimulatedSettlement{} }

// DispatchPayment returns a deterministic receipt derived from the
// synthesized settlement payment's chain, token, destination, amount, and
// nonce.
func (SimulatedSettlement) DispatchPayment(chain, token, destination string, amountMinor int64, nonce string) (settlement.Receipt, error) {
	hash, block := deterministicReceipt(fmt.Sprintf("%s|%s|%s|%d|%s", chain, token, destination, amountMinor, nonce))
	return settlement.Receipt{TxHash: hash, Block: block}, nil
}

func deterministicReceipt(seed string) (txHash string, block int64) {
	sum := sha256.Sum256([]byte(seed))
	return "0x" + hex.EncodeToString(sum[:]), int64(binary.BigEndian.Uint32(sum[:4]))
}
