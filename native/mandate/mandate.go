// Package mandate implements the AP2-style mandate model (C2): typed
// Intent/Cart/Payment mandates and the chain-linkage validator. Unlike the
// dynamically-typed dict-based mandates of the system this was distilled
// from, every mandate kind here is its own Go struct; a MandateChain can
// only be constructed from the three concrete types, never from untyped
// maps.
package mandate

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

func hashSegment(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func canonical(fields ...any) []byte {
	var b bytes.Buffer
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%v", f)
	}
	return b.Bytes()
}

// Purpose constrains what a mandate may be used for.
type Purpose string

const (
	PurposeIntent   Purpose = "intent"
	PurposeBrowsing Purpose = "browsing"
	PurposeCart     Purpose = "cart"
	PurposeCheckout Purpose = "checkout"
)

// Modality distinguishes human-present from human-not-present flows, an
// AP2 ecosystem visibility signal consumed by compliance and the
// confidence router.
type Modality string

const (
	ModalityHumanPresent    Modality = "human_present"
	ModalityHumanNotPresent Modality = "human_not_present"
)

// Proof is a verifiable-credential style data integrity proof attached to
// every mandate.
type Proof struct {
	Type                string
	VerificationMethod  string
	Created             time.Time
	ProofPurpose        string
	ProofValue          string
}

// Base holds the fields shared by every mandate kind.
type Base struct {
	MandateID string
	Issuer    string
	Subject   string
	ExpiresAt time.Time
	Nonce     string
	Proof     Proof
	Domain    string
	Purpose   Purpose
}

// IsExpired reports whether the mandate has passed its expiry at the
// given instant.
func (b Base) IsExpired(now time.Time) bool {
	return !b.ExpiresAt.After(now)
}

// Intent declares an agent's goal and the scope it is permitted to act
// within.
type Intent struct {
	Base
	Scope                []string
	RequestedAmountMinor *int64 // nil means unbounded
}

// LineItem is a single cart entry; it is opaque to the validator, which
// only consumes CartMandate totals.
type LineItem struct {
	SKU         string
	Description string
	Quantity    int64
	PriceMinor  int64
}

// Cart binds an Intent to a specific merchant basket.
type Cart struct {
	Base
	LineItems      []LineItem
	MerchantDomain string
	Currency       string
	SubtotalMinor  int64
	TaxesMinor     int64
}

// Total returns the cart's subtotal plus taxes.
func (c Cart) Total() int64 { return c.SubtotalMinor + c.TaxesMinor }

// Payment is the final, chain/token/amount/destination-bound mandate
// dispatched to a chain executor.
type Payment struct {
	Base
	Chain               string
	Token               string
	AmountMinor         int64
	Destination         string
	AuditHash           string
	AIAgentPresence     bool
	TransactionModality Modality

	// WalletID is an execution-only hint, not part of the signed payload:
	// chain executors use it to select the signing wallet.
	WalletID string
	// MerchantDomain binds back to the CartMandate.MerchantDomain; distinct
	// from the identity Domain field above.
	MerchantDomain string
}

// Chain is a verified AP2 mandate chain linking Intent -> Cart -> Payment.
// NewChain is the only constructor and enforces every invariant in
// spec.md §3 before returning a value, so a *Chain in hand is always
// valid by construction.
type Chain struct {
	Intent  Intent
	Cart    Cart
	Payment Payment
}

// Failure-kind discriminators attached as a "reason" detail on the
// ChainLinkageError returned by NewChain, matching the named failure kinds
// of spec.md §4.2.
const (
	ReasonSubjectMismatch     = "subject_mismatch"
	ReasonAmountExceedsCart   = "AmountExceedsCart"
	ReasonAmountExceedsIntent = "AmountExceedsIntent"
	ReasonExpiryOrderViolated = "ExpiryOrderViolation"
)

// NewChain validates and constructs a MandateChain. Validation order
// matches spec.md §3/§8 property 1 exactly so failure messages are
// deterministic for a given bad input. The validator never consults
// signatures, only structure and time.
func NewChain(intent Intent, cart Cart, payment Payment, now time.Time) (*Chain, error) {
	if intent.Subject != cart.Subject || cart.Subject != payment.Subject {
		return nil, agentpayerrors.ChainLinkageError(
			"all mandates must reference the same subject: intent=%s cart=%s payment=%s",
			intent.Subject, cart.Subject, payment.Subject).WithDetail("reason", ReasonSubjectMismatch)
	}

	cartTotal := cart.Total()
	if payment.AmountMinor > cartTotal {
		return nil, agentpayerrors.ChainLinkageError(
			"payment amount (%d) exceeds cart total (%d)", payment.AmountMinor, cartTotal).
			WithDetail("reason", ReasonAmountExceedsCart)
	}

	if intent.RequestedAmountMinor != nil && payment.AmountMinor > *intent.RequestedAmountMinor {
		return nil, agentpayerrors.ChainLinkageError(
			"payment amount (%d) exceeds intent requested amount (%d)",
			payment.AmountMinor, *intent.RequestedAmountMinor).
			WithDetail("reason", ReasonAmountExceedsIntent)
	}

	if !(intent.ExpiresAt.Before(cart.ExpiresAt) || intent.ExpiresAt.Equal(cart.ExpiresAt)) ||
		!(cart.ExpiresAt.Before(payment.ExpiresAt) || cart.ExpiresAt.Equal(payment.ExpiresAt)) {
		return nil, agentpayerrors.ChainLinkageError(
			"mandate expiration timestamps must be ordered intent <= cart <= payment").
			WithDetail("reason", ReasonExpiryOrderViolated)
	}

	if intent.IsExpired(now) {
		return nil, agentpayerrors.MandateExpired(intent.MandateID)
	}
	if cart.IsExpired(now) {
		return nil, agentpayerrors.MandateExpired(cart.MandateID)
	}
	if payment.IsExpired(now) {
		return nil, agentpayerrors.MandateExpired(payment.MandateID)
	}

	return &Chain{Intent: intent, Cart: cart, Payment: payment}, nil
}

// signaturePrefix is H(domain) | H(nonce) | H(purpose), the portion of the
// signing payload shared by every mandate kind. Hashing each field
// separately before concatenation prevents a value in one field from being
// crafted to look like a delimiter plus the content of another.
func (b Base) signaturePrefix() []byte {
	out := make([]byte, 0, sha256.Size*3)
	out = append(out, hashSegment(b.Domain)...)
	out = append(out, hashSegment(b.Nonce)...)
	out = append(out, hashSegment(string(b.Purpose))...)
	return out
}

// SigningPayload returns H(domain) | H(nonce) | H(purpose) | serialized
// mandate payload, the exact bytes a signature over an Intent must cover.
func (i Intent) SigningPayload() []byte {
	payload := canonical(i.MandateID, i.Issuer, i.Subject, i.ExpiresAt.Unix(), i.Scope, i.RequestedAmountMinor)
	return append(i.Base.signaturePrefix(), payload...)
}

// SigningPayload returns the signing payload for a Cart mandate.
func (c Cart) SigningPayload() []byte {
	payload := canonical(c.MandateID, c.Issuer, c.Subject, c.ExpiresAt.Unix(),
		c.MerchantDomain, c.Currency, c.SubtotalMinor, c.TaxesMinor, len(c.LineItems))
	return append(c.Base.signaturePrefix(), payload...)
}

// SigningPayload returns the signing payload for a Payment mandate.
func (p Payment) SigningPayload() []byte {
	payload := canonical(p.MandateID, p.Issuer, p.Subject, p.ExpiresAt.Unix(),
		p.Chain, p.Token, p.AmountMinor, p.Destination, p.MerchantDomain)
	return append(p.Base.signaturePrefix(), payload...)
}
