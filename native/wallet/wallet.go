// Package wallet defines the non-custodial Wallet record: the policy and
// address bookkeeping for an agent's chain accounts. The wallet never
// holds balances itself; balances are queried on demand through the
// chain executor or RPC port.
package wallet

import (
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// AccountType distinguishes how a wallet's keys are custodied.
type AccountType string

const (
	AccountMPCV1     AccountType = "mpc_v1"
	AccountERC4337V2 AccountType = "erc4337_v2"
)

// Wallet is a non-custodial wallet record.
type Wallet struct {
	WalletID        string
	AgentID         string
	AccountType     AccountType
	Addresses       map[string]string // chain -> address
	LimitPerTxMinor int64
	LimitTotalMinor int64
	IsActive        bool
	IsFrozen        bool
	FrozenAt        *time.Time
	FrozenBy        string
	FrozenReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AddressFor returns the wallet's address on chain, or a Validation error
// if the wallet has no address registered there.
func (w Wallet) AddressFor(chain string) (string, error) {
	addr, ok := w.Addresses[chain]
	if !ok || addr == "" {
		return "", agentpayerrors.Validation("wallet %s has no address on chain %s", w.WalletID, chain)
	}
	return addr, nil
}

// Usable reports whether the wallet may currently originate or receive a
// payment: active and not frozen.
func (w Wallet) Usable() bool {
	return w.IsActive && !w.IsFrozen
}

// Freeze marks the wallet frozen, recording who froze it and why.
func (w Wallet) Freeze(by, reason string, now time.Time) Wallet {
	w.IsFrozen = true
	w.FrozenAt = &now
	w.FrozenBy = by
	w.FrozenReason = reason
	w.UpdatedAt = now
	return w
}

// Unfreeze clears a wallet's frozen state.
func (w Wallet) Unfreeze(now time.Time) Wallet {
	w.IsFrozen = false
	w.FrozenAt = nil
	w.FrozenBy = ""
	w.FrozenReason = ""
	w.UpdatedAt = now
	return w
}
