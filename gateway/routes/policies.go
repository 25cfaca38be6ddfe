package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/policy"
)

type policyRoutes struct {
	srv *Server
}

func newPolicyRoutes(srv *Server) *policyRoutes { return &policyRoutes{srv: srv} }

func (pr *policyRoutes) mount(r chi.Router) {
	r.Post("/apply", pr.apply)
	r.Post("/check", pr.check)
	r.Get("/{agentID}", pr.get)
}

type timeWindowWire struct {
	LimitMinor int64 `json:"limit_minor"`
}

type applyPolicyRequest struct {
	AgentID                   string            `json:"agent_id"`
	TrustLevel                string            `json:"trust_level"`
	LimitPerTxMinor           int64             `json:"limit_per_tx_minor"`
	LimitTotalMinor           int64             `json:"limit_total_minor"`
	Daily                     *timeWindowWire   `json:"daily,omitempty"`
	Weekly                    *timeWindowWire   `json:"weekly,omitempty"`
	Monthly                   *timeWindowWire   `json:"monthly,omitempty"`
	AllowedScopes             []string          `json:"allowed_scopes"`
	BlockedMerchantCategories []string          `json:"blocked_merchant_categories"`
	AllowedDestinations       []string          `json:"allowed_destinations"`
	BlockedDestinations       []string          `json:"blocked_destinations"`
	RequirePreauth            bool              `json:"require_preauth"`
	ApprovalThresholdMinor    *int64            `json:"approval_threshold_minor,omitempty"`
	MaxDriftScore             float64           `json:"max_drift_score"`
	MaxHoldHours              int               `json:"max_hold_hours"`
	VelocityMode              string            `json:"velocity_mode"`
	VelocityMaxCount          int               `json:"velocity_max_count"`
	VelocityWindowSeconds     int64             `json:"velocity_window_seconds"`
}

func (pr *policyRoutes) apply(w http.ResponseWriter, r *http.Request) {
	var req applyPolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.AgentID == "" {
		writeError(w, agentpayerrors.Validation("agent_id is required"))
		return
	}

	now := pr.srv.now()
	existing, err := pr.srv.Policies.Get(r.Context(), req.AgentID)
	if err != nil {
		existing = policy.Policy{PolicyID: pr.srv.genID(), AgentID: req.AgentID, CreatedAt: now}
	}

	existing.TrustLevel = policy.TrustLevel(req.TrustLevel)
	existing.LimitPerTxMinor = req.LimitPerTxMinor
	existing.LimitTotalMinor = req.LimitTotalMinor
	existing.Daily = toWindow(req.Daily, policy.WindowDaily, now)
	existing.Weekly = toWindow(req.Weekly, policy.WindowWeekly, now)
	existing.Monthly = toWindow(req.Monthly, policy.WindowMonthly, now)
	existing.AllowedScopes = req.AllowedScopes
	existing.BlockedMerchantCategories = req.BlockedMerchantCategories
	existing.AllowedDestinations = req.AllowedDestinations
	existing.BlockedDestinations = req.BlockedDestinations
	existing.RequirePreauth = req.RequirePreauth
	existing.ApprovalThresholdMinor = req.ApprovalThresholdMinor
	existing.MaxDriftScore = req.MaxDriftScore
	existing.MaxHoldHours = req.MaxHoldHours
	existing.VelocityMode = policy.VelocityMode(req.VelocityMode)
	existing.VelocityMaxCount = req.VelocityMaxCount
	existing.VelocityWindow = time.Duration(req.VelocityWindowSeconds) * time.Second
	existing.UpdatedAt = now

	if err := pr.srv.Policies.Put(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func toWindow(w *timeWindowWire, wt policy.WindowType, now time.Time) *policy.TimeWindowLimit {
	if w == nil {
		return nil
	}
	return &policy.TimeWindowLimit{WindowType: wt, LimitMinor: w.LimitMinor, WindowStart: now}
}

func (pr *policyRoutes) get(w http.ResponseWriter, r *http.Request) {
	p, err := pr.srv.Policies.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type checkPolicyRequest struct {
	AgentID          string  `json:"agent_id"`
	AmountMinor      int64   `json:"amount_minor"`
	FeeMinor         int64   `json:"fee_minor"`
	Chain            string  `json:"chain"`
	Token            string  `json:"token"`
	Wallet           string  `json:"wallet"`
	MerchantID       string  `json:"merchant_id"`
	MerchantCategory string  `json:"merchant_category"`
	Scope            string  `json:"scope"`
	DriftScore       float64 `json:"drift_score"`
}

// check evaluates a hypothetical payment against the agent's current
// policy without recording any spend, so callers can preflight a mandate
// before asking the agent to sign it.
func (pr *policyRoutes) check(w http.ResponseWriter, r *http.Request) {
	var req checkPolicyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := pr.srv.Policies.Get(r.Context(), req.AgentID)
	if err != nil {
		writeError(w, err)
		return
	}

	now := pr.srv.now()
	decision := p.Evaluate(policy.Input{
		AmountMinor: req.AmountMinor, FeeMinor: req.FeeMinor,
		Chain: req.Chain, Token: req.Token, Wallet: req.Wallet,
		MerchantID: req.MerchantID, MerchantCategory: req.MerchantCategory,
		Scope: req.Scope, DriftScore: req.DriftScore, Now: now,
	})

	receipt, err := policy.Attest(p, policy.DecisionContext{
		AmountMinor: req.AmountMinor, FeeMinor: req.FeeMinor,
		Chain: req.Chain, Token: req.Token,
		MerchantID: req.MerchantID, MerchantCategory: req.MerchantCategory,
		Scope: req.Scope,
	}, decision, pr.srv.genID(), now)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
		"receipt": receipt,
	})
}
