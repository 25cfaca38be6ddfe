package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// canonicalPolicy is the subset of Policy that is hashed for attestation:
// mutable counters (spent_total, window current_spent) are excluded so the
// same policy version produces the same hash regardless of how much of
// its budget has been consumed.
type canonicalPolicy struct {
	PolicyID                  string     `json:"policy_id"`
	AgentID                   string     `json:"agent_id"`
	TrustLevel                TrustLevel `json:"trust_level"`
	LimitPerTxMinor           int64      `json:"limit_per_tx_minor"`
	LimitTotalMinor           int64      `json:"limit_total_minor"`
	DailyLimitMinor           int64      `json:"daily_limit_minor"`
	WeeklyLimitMinor          int64      `json:"weekly_limit_minor"`
	MonthlyLimitMinor         int64      `json:"monthly_limit_minor"`
	AllowedScopes             []string   `json:"allowed_scopes"`
	BlockedMerchantCategories []string   `json:"blocked_merchant_categories"`
	RequirePreauth            bool       `json:"require_preauth"`
	ApprovalThresholdMinor    int64      `json:"approval_threshold_minor"`
	MaxDriftScore             float64    `json:"max_drift_score"`
	MaxHoldHours              int        `json:"max_hold_hours"`
}

func (p Policy) canonical() canonicalPolicy {
	c := canonicalPolicy{
		PolicyID: p.PolicyID, AgentID: p.AgentID, TrustLevel: p.TrustLevel,
		LimitPerTxMinor: p.LimitPerTxMinor, LimitTotalMinor: p.LimitTotalMinor,
		AllowedScopes:             append([]string(nil), p.AllowedScopes...),
		BlockedMerchantCategories: append([]string(nil), p.BlockedMerchantCategories...),
		RequirePreauth:            p.RequirePreauth,
		MaxDriftScore:             p.MaxDriftScore,
		MaxHoldHours:              p.MaxHoldHours,
	}
	sort.Strings(c.AllowedScopes)
	sort.Strings(c.BlockedMerchantCategories)
	if p.Daily != nil {
		c.DailyLimitMinor = p.Daily.LimitMinor
	}
	if p.Weekly != nil {
		c.WeeklyLimitMinor = p.Weekly.LimitMinor
	}
	if p.Monthly != nil {
		c.MonthlyLimitMinor = p.Monthly.LimitMinor
	}
	if p.ApprovalThresholdMinor != nil {
		c.ApprovalThresholdMinor = *p.ApprovalThresholdMinor
	}
	return c
}

// sha256Hex is the stable, UTF-8, SHA-256 digest of canonically-ordered
// JSON: json.Marshal on a struct with fixed field order is already
// stable across runs, so no separate canonicalization pass is needed
// beyond sorting the slice fields above.
func sha256Hex(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// DecisionContext is the set of input fields the engine consumed to reach
// a decision, hashed as the attestation's second leaf.
type DecisionContext struct {
	AmountMinor      int64  `json:"amount_minor"`
	FeeMinor         int64  `json:"fee_minor"`
	Chain            string `json:"chain"`
	Token            string `json:"token"`
	MerchantID       string `json:"merchant_id,omitempty"`
	MerchantCategory string `json:"merchant_category,omitempty"`
	Scope            string `json:"scope"`
}

// Receipt is the deterministic attestation of a policy decision.
type Receipt struct {
	DecisionID   string    `json:"decision_id"`
	Decision     bool      `json:"decision"`
	Reason       string    `json:"reason"`
	PolicyHash   string    `json:"policy_hash"`
	ContextHash  string    `json:"context_hash"`
	DecisionHash string    `json:"decision_hash"`
	MerkleRoot   string    `json:"merkle_root"`
	AuditAnchor  string    `json:"audit_anchor"`
	IssuedAt     time.Time `json:"issued_at"`
}

type decisionRecord struct {
	DecisionID  string `json:"decision_id"`
	PolicyHash  string `json:"policy_hash"`
	Decision    bool   `json:"decision"`
	Reason      string `json:"reason"`
	ContextHash string `json:"context_hash"`
}

// Attest produces a Receipt for decision d reached by policy p against
// ctx, identified by decisionID. Hashing order and the merkle combination
// are fixed so that identical (policy, context, decision) inputs always
// produce the same merkle root.
func Attest(p Policy, ctx DecisionContext, d Decision, decisionID string, now time.Time) (Receipt, error) {
	policyHash, err := sha256Hex(p.canonical())
	if err != nil {
		return Receipt{}, err
	}
	contextHash, err := sha256Hex(ctx)
	if err != nil {
		return Receipt{}, err
	}
	record := decisionRecord{
		DecisionID: decisionID, PolicyHash: policyHash,
		Decision: d.Allowed, Reason: d.Reason, ContextHash: contextHash,
	}
	decisionHash, err := sha256Hex(record)
	if err != nil {
		return Receipt{}, err
	}

	root := merkleRoot([]string{policyHash, contextHash, decisionHash})

	return Receipt{
		DecisionID: decisionID, Decision: d.Allowed, Reason: d.Reason,
		PolicyHash: policyHash, ContextHash: contextHash, DecisionHash: decisionHash,
		MerkleRoot: root, AuditAnchor: "merkle::" + root, IssuedAt: now,
	}, nil
}

// merkleRoot combines leaves into a single SHA-256 root via pairwise,
// sorted concatenation: at each level, hashes are paired in order and
// each pair is sorted lexicographically before concatenation, so
// swapping the two members of a pair leaves the root unchanged, while
// moving a leaf into another pair changes it. An odd leaf out is carried
// forward unchanged to the next level.
func merkleRoot(leaves []string) string {
	level := append([]string(nil), leaves...)
	for len(level) > 1 {
		var next []string
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			a, b := level[i], level[i+1]
			if a > b {
				a, b = b, a
			}
			sum := sha256.Sum256([]byte(a + b))
			next = append(next, hex.EncodeToString(sum[:]))
		}
		level = next
	}
	if len(level) == 0 {
		return ""
	}
	return level[0]
}
