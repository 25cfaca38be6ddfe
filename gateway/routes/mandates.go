package routes

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/replay"
	"github.com/sardis-labs/agentpay/native/identity"
	"github.com/sardis-labs/agentpay/native/mandate"
)

type mandateRoutes struct {
	srv *Server
}

func newMandateRoutes(srv *Server) *mandateRoutes { return &mandateRoutes{srv: srv} }

func (mr *mandateRoutes) mount(r chi.Router) {
	r.Post("/execute", mr.execute)
}

// baseWire is the wire shape shared by every mandate kind.
type baseWire struct {
	MandateID string `json:"mandate_id"`
	Issuer    string `json:"issuer"`
	Subject   string `json:"subject"`
	ExpiresAt int64  `json:"expires_at"`
	Nonce     string `json:"nonce"`
	Domain    string `json:"domain"`
	Purpose   string `json:"purpose"`
	Signature string `json:"signature"` // hex-encoded proof value
}

type intentWire struct {
	baseWire
	Scope                []string `json:"scope"`
	RequestedAmountMinor *int64   `json:"requested_amount_minor,omitempty"`
}

type lineItemWire struct {
	SKU         string `json:"sku"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	PriceMinor  int64  `json:"price_minor"`
}

type cartWire struct {
	baseWire
	LineItems      []lineItemWire `json:"line_items"`
	MerchantDomain string         `json:"merchant_domain"`
	Currency       string         `json:"currency"`
	SubtotalMinor  int64          `json:"subtotal_minor"`
	TaxesMinor     int64          `json:"taxes_minor"`
}

type paymentWire struct {
	baseWire
	Chain               string `json:"chain"`
	Token               string `json:"token"`
	AmountMinor         int64  `json:"amount_minor"`
	Destination         string `json:"destination"`
	WalletID            string `json:"wallet_id"`
	MerchantDomain      string `json:"merchant_domain"`
	AIAgentPresence     bool   `json:"ai_agent_presence"`
	TransactionModality string `json:"transaction_modality"`
}

type executeMandateRequest struct {
	Mandate struct {
		Intent  intentWire  `json:"intent"`
		Cart    cartWire    `json:"cart"`
		Payment paymentWire `json:"payment"`
	} `json:"mandate"`
}

func (b baseWire) toBase() mandate.Base {
	return mandate.Base{
		MandateID: b.MandateID, Issuer: b.Issuer, Subject: b.Subject,
		ExpiresAt: time.Unix(b.ExpiresAt, 0).UTC(), Nonce: b.Nonce,
		Domain: b.Domain, Purpose: mandate.Purpose(b.Purpose),
	}
}

func (mr *mandateRoutes) execute(w http.ResponseWriter, r *http.Request) {
	var req executeMandateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	now := mr.srv.now()

	intent := mandate.Intent{
		Base: req.Mandate.Intent.toBase(), Scope: req.Mandate.Intent.Scope,
		RequestedAmountMinor: req.Mandate.Intent.RequestedAmountMinor,
	}
	lineItems := make([]mandate.LineItem, len(req.Mandate.Cart.LineItems))
	for i, li := range req.Mandate.Cart.LineItems {
		lineItems[i] = mandate.LineItem{SKU: li.SKU, Description: li.Description, Quantity: li.Quantity, PriceMinor: li.PriceMinor}
	}
	cart := mandate.Cart{
		Base: req.Mandate.Cart.toBase(), LineItems: lineItems,
		MerchantDomain: req.Mandate.Cart.MerchantDomain, Currency: req.Mandate.Cart.Currency,
		SubtotalMinor: req.Mandate.Cart.SubtotalMinor, TaxesMinor: req.Mandate.Cart.TaxesMinor,
	}
	payment := mandate.Payment{
		Base: req.Mandate.Payment.toBase(), Chain: req.Mandate.Payment.Chain,
		Token: req.Mandate.Payment.Token, AmountMinor: req.Mandate.Payment.AmountMinor,
		Destination: req.Mandate.Payment.Destination, WalletID: req.Mandate.Payment.WalletID,
		MerchantDomain: req.Mandate.Payment.MerchantDomain, AIAgentPresence: req.Mandate.Payment.AIAgentPresence,
		TransactionModality: mandate.Modality(req.Mandate.Payment.TransactionModality),
	}

	chain, err := mandate.NewChain(intent, cart, payment, now)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := mr.verifySignatures(r.Context(), *chain, req); err != nil {
		writeError(w, err)
		return
	}

	if mr.srv.Replay.Claim(payment.MandateID, mr.srv.mandateTTL()) != replay.Claimed {
		writeError(w, agentpayerrors.ReplayDetected(payment.MandateID))
		return
	}

	result, err := mr.srv.Orchestrator.Execute(r.Context(), chain)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mandate_id":          result.MandateID,
		"ledger_tx_id":        result.LedgerTxID,
		"chain_tx_hash":       result.ChainTxHash,
		"chain":               result.Chain,
		"audit_anchor":        result.AuditAnchor,
		"compliance_provider": result.ComplianceProvider,
		"compliance_rule":     result.ComplianceRule,
		"status":              result.Status,
	})
}

func (s *Server) mandateTTL() time.Duration {
	if s.MandateTTL > 0 {
		return s.MandateTTL
	}
	return 15 * time.Minute
}

// verifySignatures checks each mandate's proof against the subject agent's
// currently valid key set. A mandate with an empty signature is only
// accepted when the key manager has no keys registered for the agent at
// all, matching dev/sandbox setups that haven't provisioned key material.
func (mr *mandateRoutes) verifySignatures(ctx context.Context, chain mandate.Chain, req executeMandateRequest) error {
	checks := []struct {
		wire    baseWire
		domain  string
		payload []byte
	}{
		{req.Mandate.Intent.baseWire, chain.Intent.Domain, chain.Intent.SigningPayload()},
		{req.Mandate.Cart.baseWire, chain.Cart.Domain, chain.Cart.SigningPayload()},
		{req.Mandate.Payment.baseWire, chain.Payment.Domain, chain.Payment.SigningPayload()},
	}
	for _, c := range checks {
		if len(mr.srv.KeyManager.ActiveKeys(c.wire.Subject)) == 0 {
			continue
		}
		sig, err := hex.DecodeString(c.wire.Signature)
		if err != nil {
			return agentpayerrors.Validation("mandate %s: malformed signature", c.wire.MandateID)
		}
		agent, err := mr.srv.Agents.Get(ctx, c.wire.Subject)
		if err != nil {
			return err
		}
		id := identity.Identity{AgentID: c.wire.Subject, Domain: agent.Domain}
		if _, err := mr.srv.Identity.Verify(id, c.domain, c.payload, sig); err != nil {
			return err
		}
	}
	return nil
}
