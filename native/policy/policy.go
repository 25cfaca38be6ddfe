// Package policy implements the spending policy engine (C6): a
// deterministic, ordered, short-circuiting set of checks over a proposed
// payment, and the attestation receipt that proves which policy version
// produced a decision (C7, see attestation.go).
package policy

import (
	"strings"
	"time"
)

// TrustLevel is an agent's KYA-adjacent trust tier, consumed only to
// widen or narrow policy defaults by callers; the engine itself treats it
// as opaque data carried on the policy.
type TrustLevel string

const (
	TrustNone     TrustLevel = "none"
	TrustBasic    TrustLevel = "basic"
	TrustVerified TrustLevel = "verified"
	TrustAttested TrustLevel = "attested"
)

// VelocityMode selects whether a velocity breach is a hard denial or a
// signal folded into the decision reason without blocking the payment.
// This is an explicit config knob per spec.md's open question on velocity
// semantics; it defaults to Hard to match the stricter of the two
// documented behaviors.
type VelocityMode string

const (
	VelocityHard   VelocityMode = "hard"
	VelocitySignal VelocityMode = "signal"
)

// WindowType names a TimeWindowLimit's reset cadence.
type WindowType string

const (
	WindowDaily   WindowType = "daily"
	WindowWeekly  WindowType = "weekly"
	WindowMonthly WindowType = "monthly"
)

func (w WindowType) duration() time.Duration {
	switch w {
	case WindowDaily:
		return 24 * time.Hour
	case WindowWeekly:
		return 7 * 24 * time.Hour
	case WindowMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// TimeWindowLimit tracks spend within a rolling window, auto-resetting
// once the window has elapsed.
type TimeWindowLimit struct {
	WindowType   WindowType
	LimitMinor   int64
	CurrentSpent int64
	WindowStart  time.Time
}

// resetIfElapsed zeroes the window if now is past its end, returning the
// (possibly reset) window.
func (w TimeWindowLimit) resetIfElapsed(now time.Time) TimeWindowLimit {
	if w.WindowType.duration() == 0 {
		return w
	}
	if !now.Before(w.WindowStart.Add(w.WindowType.duration())) {
		w.CurrentSpent = 0
		w.WindowStart = now
	}
	return w
}

// RuleType is a MerchantRule's polarity.
type RuleType string

const (
	RuleAllow RuleType = "allow"
	RuleDeny  RuleType = "deny"
)

// MerchantRule allow/deny-lists a merchant or merchant category, optionally
// capping the per-transaction amount for matches.
type MerchantRule struct {
	RuleType    RuleType
	MerchantID  string
	Category    string
	MaxPerTx    *int64
	DailyLimit  *int64
	Reason      string
	ExpiresAt   *time.Time
}

func (r MerchantRule) matches(merchantID, category string, now time.Time) bool {
	if r.ExpiresAt != nil && now.After(*r.ExpiresAt) {
		return false
	}
	if r.MerchantID != "" && !strings.EqualFold(r.MerchantID, merchantID) {
		return false
	}
	if r.Category != "" && !strings.EqualFold(r.Category, category) {
		return false
	}
	return r.MerchantID != "" || r.Category != ""
}

// Policy is a SpendingPolicy: the full set of limits and rules evaluated
// against a proposed payment.
type Policy struct {
	PolicyID                 string
	AgentID                  string
	TrustLevel               TrustLevel
	LimitPerTxMinor          int64
	LimitTotalMinor          int64
	SpentTotalMinor          int64
	Daily                    *TimeWindowLimit
	Weekly                   *TimeWindowLimit
	Monthly                  *TimeWindowLimit
	MerchantRules            []MerchantRule
	AllowedScopes            []string
	BlockedMerchantCategories []string
	AllowedDestinations      []string
	BlockedDestinations      []string
	RequirePreauth           bool
	ApprovalThresholdMinor   *int64
	MaxDriftScore            float64
	MaxHoldHours             int
	VelocityMode             VelocityMode
	VelocityMaxCount         int
	VelocityWindow           time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RPCPort resolves an on-chain balance for a wallet.
type RPCPort interface {
	GetBalance(wallet, chain, token string) (int64, error)
}

// PolicyStatePort provides DB-authoritative spend counters when the
// in-memory counters on Policy are not the source of truth (multi-instance
// deployments).
type PolicyStatePort interface {
	SpentTotal(policyID string) (int64, error)
	WindowSpent(policyID string, wt WindowType) (TimeWindowLimit, error)
	VelocityCount(agentID string, window time.Duration, now time.Time) (int, error)
}

// MCCRegistry classifies a merchant category code.
type MCCRegistry interface {
	Category(mcc string) (category string, defaultBlocked bool, ok bool)
}

// Input bundles every field evaluate consumes.
type Input struct {
	AmountMinor      int64
	FeeMinor         int64
	Chain            string
	Token            string
	Wallet           string
	MerchantID       string
	MerchantCategory string
	MCC              string
	Scope            string
	DriftScore       float64
	Now              time.Time

	RPC         RPCPort
	State       PolicyStatePort
	MCCRegistry MCCRegistry
}

// Decision is the evaluate() result: allowed plus a stable reason code.
// Reason is always populated, even on allow (e.g. "ok" or
// "requires_approval").
type Decision struct {
	Allowed bool
	Reason  string
}

// Reason codes, the external contract named in spec.md §4.5.
const (
	ReasonOK                      = "ok"
	ReasonInvalidAmount           = "invalid_amount"
	ReasonScopeDenied             = "scope_denied"
	ReasonMerchantCategoryBlocked = "merchant_category_blocked"
	ReasonPerTxLimitExceeded      = "per_tx_limit_exceeded"
	ReasonVelocityExceeded        = "velocity_exceeded"
	ReasonTotalLimitExceeded      = "total_limit_exceeded"
	ReasonDailyLimitExceeded      = "daily_limit_exceeded"
	ReasonWeeklyLimitExceeded     = "weekly_limit_exceeded"
	ReasonMonthlyLimitExceeded    = "monthly_limit_exceeded"
	ReasonInsufficientBalance     = "insufficient_balance"
	ReasonMerchantDenied          = "merchant_denied"
	ReasonMerchantNotAllowlisted  = "merchant_not_allowlisted"
	ReasonDriftExceeded           = "drift_exceeded"
	ReasonRequiresApproval        = "requires_approval"
)

const scopeAll = "ALL"

// Evaluate runs the ordered, short-circuiting checks of spec.md §4.5
// against in. The policy itself is read-only here; callers invoke
// RecordSpend after a successful dispatch.
func (p Policy) Evaluate(in Input) Decision {
	if in.AmountMinor <= 0 || in.FeeMinor < 0 {
		return Decision{false, ReasonInvalidAmount}
	}

	if !p.scopeAllowed(in.Scope) {
		return Decision{false, ReasonScopeDenied}
	}

	if in.MCC != "" {
		if blocked := p.mccBlocked(in.MCC, in.MCCRegistry); blocked {
			return Decision{false, ReasonMerchantCategoryBlocked}
		}
	}

	if in.AmountMinor+in.FeeMinor > p.LimitPerTxMinor {
		return Decision{false, ReasonPerTxLimitExceeded}
	}

	if in.State != nil && p.VelocityMaxCount > 0 {
		count, err := in.State.VelocityCount(p.AgentID, p.VelocityWindow, in.Now)
		if err == nil && count >= p.VelocityMaxCount && p.VelocityMode != VelocitySignal {
			return Decision{false, ReasonVelocityExceeded}
		}
	}

	if d, ok := p.checkTotalsAndWindows(in); !ok {
		return d
	}

	if in.RPC != nil {
		balance, err := in.RPC.GetBalance(in.Wallet, in.Chain, in.Token)
		if err == nil && balance < in.AmountMinor+in.FeeMinor {
			return Decision{false, ReasonInsufficientBalance}
		}
	}

	if d, ok := p.checkMerchantRules(in); !ok {
		return d
	}

	if p.MaxDriftScore > 0 && in.DriftScore > p.MaxDriftScore {
		return Decision{false, ReasonDriftExceeded}
	}

	if p.ApprovalThresholdMinor != nil && in.AmountMinor > *p.ApprovalThresholdMinor {
		return Decision{true, ReasonRequiresApproval}
	}

	return Decision{true, ReasonOK}
}

func (p Policy) scopeAllowed(scope string) bool {
	for _, s := range p.AllowedScopes {
		if s == scopeAll || strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

func (p Policy) mccBlocked(mcc string, reg MCCRegistry) bool {
	category, defaultBlocked, ok := "", false, false
	if reg != nil {
		category, defaultBlocked, ok = reg.Category(mcc)
	}
	if ok && defaultBlocked {
		return true
	}
	for _, blocked := range p.BlockedMerchantCategories {
		if ok && strings.EqualFold(blocked, category) {
			return true
		}
	}
	return false
}

func (p Policy) checkTotalsAndWindows(in Input) (Decision, bool) {
	spentTotal := p.SpentTotalMinor
	if in.State != nil {
		if v, err := in.State.SpentTotal(p.PolicyID); err == nil {
			spentTotal = v
		}
	}
	if p.LimitTotalMinor > 0 && spentTotal+in.AmountMinor > p.LimitTotalMinor {
		return Decision{false, ReasonTotalLimitExceeded}, false
	}

	checks := []struct {
		window *TimeWindowLimit
		reason string
	}{
		{p.Daily, ReasonDailyLimitExceeded},
		{p.Weekly, ReasonWeeklyLimitExceeded},
		{p.Monthly, ReasonMonthlyLimitExceeded},
	}
	for _, c := range checks {
		if c.window == nil {
			continue
		}
		w := *c.window
		if in.State != nil {
			if fromState, err := in.State.WindowSpent(p.PolicyID, w.WindowType); err == nil {
				w = fromState
			}
		}
		w = w.resetIfElapsed(in.Now)
		if w.LimitMinor > 0 && w.CurrentSpent+in.AmountMinor > w.LimitMinor {
			return Decision{false, c.reason}, false
		}
	}
	return Decision{}, true
}

func (p Policy) checkMerchantRules(in Input) (Decision, bool) {
	hasAllowRules := false
	matchedAllow := false
	var matchedAllowRule *MerchantRule

	for i := range p.MerchantRules {
		r := p.MerchantRules[i]
		if !r.matches(in.MerchantID, in.MerchantCategory, in.Now) {
			continue
		}
		if r.RuleType == RuleDeny {
			return Decision{false, ReasonMerchantDenied}, false
		}
		hasAllowRules = true
		matchedAllow = true
		matchedAllowRule = &r
	}
	// Presence of any allow rule in the policy (matched or not) implies
	// allow-list semantics: an unmatched transaction is denied.
	for i := range p.MerchantRules {
		if p.MerchantRules[i].RuleType == RuleAllow {
			hasAllowRules = true
		}
	}
	if hasAllowRules && !matchedAllow {
		return Decision{false, ReasonMerchantNotAllowlisted}, false
	}
	if matchedAllowRule != nil && matchedAllowRule.MaxPerTx != nil && in.AmountMinor > *matchedAllowRule.MaxPerTx {
		return Decision{false, ReasonPerTxLimitExceeded}, false
	}
	return Decision{}, true
}

// RecordSpend updates spent_total and every configured window after a
// successful dispatch. Callers own persistence; this returns the updated
// value for the caller to write back (to the policy row or a
// PolicyStatePort-backed store).
func (p Policy) RecordSpend(amountMinor int64, now time.Time) Policy {
	p.SpentTotalMinor += amountMinor
	for _, w := range []**TimeWindowLimit{&p.Daily, &p.Weekly, &p.Monthly} {
		if *w == nil {
			continue
		}
		reset := (**w).resetIfElapsed(now)
		reset.CurrentSpent += amountMinor
		*w = &reset
	}
	p.UpdatedAt = now
	return p
}
