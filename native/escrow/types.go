// Package escrow implements the agent-to-agent escrow state machine
// (C11): two-agent held value with its own lifecycle, distinct from a
// hold. Sanitize-then-clone validation mirrors the teacher's native/
// package convention: every constructor returns a deep copy that is
// valid by construction, and nothing here mutates a caller's value.
package escrow

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/sardis-labs/agentpay/crypto"
)

// Status is one of the seven A2A escrow lifecycle states.
type Status uint8

const (
	StatusCreated Status = iota
	StatusFunded
	StatusDelivered
	StatusReleased
	StatusRefunded
	StatusDisputed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "CREATED"
	case StatusFunded:
		return "FUNDED"
	case StatusDelivered:
		return "DELIVERED"
	case StatusReleased:
		return "RELEASED"
	case StatusRefunded:
		return "REFUNDED"
	case StatusDisputed:
		return "DISPUTED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusFunded, StatusDelivered, StatusReleased, StatusRefunded, StatusDisputed, StatusExpired:
		return true
	default:
		return false
	}
}

// allowedTransitions is the fail-closed transition table of spec.md §4.8.
// Anything not listed here is an InvalidTransition.
var allowedTransitions = map[Status]map[Status]bool{
	StatusCreated:   {StatusFunded: true, StatusExpired: true},
	StatusFunded:    {StatusDelivered: true, StatusRefunded: true, StatusDisputed: true, StatusExpired: true},
	StatusDelivered: {StatusReleased: true, StatusDisputed: true},
	StatusDisputed:  {StatusReleased: true, StatusRefunded: true},
	StatusExpired:   {StatusRefunded: true},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

// Escrow is a two-agent held value agreement.
type Escrow struct {
	ID                string
	Payer             crypto.Address
	Payee             crypto.Address
	Chain             string
	Token             string
	Amount            *big.Int
	Status            Status
	CreatedAt         int64
	ExpiresAt         int64
	FundedTxHash      string
	DeliveryProofHash string
	DisputeReason     string
}

// Clone returns a deep copy of e so callers can mutate the copy without
// affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Amount != nil {
		clone.Amount = new(big.Int).Set(e.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// Create validates a new escrow and returns it in StatusCreated. Payer and
// payee must differ and amount must be positive.
func Create(id string, payer, payee crypto.Address, chain, token string, amount *big.Int, createdAt, expiresAt int64) (*Escrow, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: amount must be positive")
	}
	if payer.String() == payee.String() {
		return nil, fmt.Errorf("escrow: payer and payee must differ")
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("escrow: id must not be empty")
	}
	if expiresAt <= createdAt {
		return nil, fmt.Errorf("escrow: expiresAt must be after createdAt")
	}
	return &Escrow{
		ID: id, Payer: payer, Payee: payee, Chain: chain, Token: token,
		Amount: new(big.Int).Set(amount), Status: StatusCreated,
		CreatedAt: createdAt, ExpiresAt: expiresAt,
	}, nil
}

// ErrInvalidTransition is returned by Transition for any move not present
// in the fail-closed transition table.
type ErrInvalidTransition struct {
	From, To Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("escrow: invalid transition %s -> %s", e.From, e.To)
}

// Transition moves e to status `to` if the move is legal, returning a
// clone with the new status. e itself is never mutated.
func (e *Escrow) Transition(to Status) (*Escrow, error) {
	if !CanTransition(e.Status, to) {
		return nil, &ErrInvalidTransition{From: e.Status, To: to}
	}
	clone := e.Clone()
	clone.Status = to
	return clone, nil
}

// Fund moves a CREATED escrow to FUNDED, recording the funding tx hash.
func (e *Escrow) Fund(txHash string) (*Escrow, error) {
	next, err := e.Transition(StatusFunded)
	if err != nil {
		return nil, err
	}
	next.FundedTxHash = txHash
	return next, nil
}

// ConfirmDelivery moves a FUNDED escrow to DELIVERED, recording a proof
// hash supplied by the payee.
func (e *Escrow) ConfirmDelivery(proofHash string) (*Escrow, error) {
	next, err := e.Transition(StatusDelivered)
	if err != nil {
		return nil, err
	}
	next.DeliveryProofHash = proofHash
	return next, nil
}

// Dispute moves a FUNDED or DELIVERED escrow to DISPUTED.
func (e *Escrow) Dispute(reason string) (*Escrow, error) {
	next, err := e.Transition(StatusDisputed)
	if err != nil {
		return nil, err
	}
	next.DisputeReason = reason
	return next, nil
}

// Release moves a DELIVERED or DISPUTED escrow to RELEASED, the only
// state the settlement engine (C12) operates on.
func (e *Escrow) Release() (*Escrow, error) {
	return e.Transition(StatusReleased)
}

// Refund moves a FUNDED, DISPUTED, or EXPIRED escrow to REFUNDED.
func (e *Escrow) Refund() (*Escrow, error) {
	return e.Transition(StatusRefunded)
}

// CheckExpired moves a CREATED or FUNDED escrow past its deadline to
// EXPIRED, returning nil (no-op) if e is not eligible.
func (e *Escrow) CheckExpired(now int64) *Escrow {
	if (e.Status != StatusCreated && e.Status != StatusFunded) || now < e.ExpiresAt {
		return nil
	}
	next, err := e.Transition(StatusExpired)
	if err != nil {
		return nil
	}
	return next
}

// CheckExpiredEscrows sweeps escrows, atomically moving every CREATED or
// FUNDED entry past its deadline to EXPIRED. Returns the updated set and
// count transitioned; escrows not eligible are returned unchanged.
func CheckExpiredEscrows(escrows []*Escrow, now int64) (updated []*Escrow, transitioned int) {
	updated = make([]*Escrow, len(escrows))
	for i, e := range escrows {
		if next := e.CheckExpired(now); next != nil {
			updated[i] = next
			transitioned++
			continue
		}
		updated[i] = e
	}
	return updated, transitioned
}
