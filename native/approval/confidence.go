// Package approval implements the confidence router and approval
// workflow (C15): a calibrated score that routes a transaction to an
// approval tier, and the quorum-based workflow that tracks votes on
// transactions requiring more than automatic approval.
package approval

import "math"

// KYALevel is the agent's Know-Your-Agent identity level.
type KYALevel string

const (
	KYANone     KYALevel = "none"
	KYABasic    KYALevel = "basic"
	KYAVerified KYALevel = "verified"
	KYAAttested KYALevel = "attested"
)

var kyaWeight = map[KYALevel]float64{
	KYANone:     0.0,
	KYABasic:    0.10,
	KYAVerified: 0.20,
	KYAAttested: 0.30,
}

// Level is the discrete routing tier a calibrated confidence score maps
// to.
type Level string

const (
	LevelAutoApprove     Level = "AUTO_APPROVE"
	LevelManagerApproval Level = "MANAGER_APPROVAL"
	LevelMultiSig        Level = "MULTI_SIG"
	LevelHumanRewrite    Level = "HUMAN_REWRITE"
)

// Inputs bundles everything CalculateConfidence needs to score one
// transaction.
type Inputs struct {
	KYA KYALevel

	// Budget headroom: remaining spend capacity over total limit, in
	// [0,1]. A policy with no total limit configured reports 0
	// headroom (the conservative case).
	BudgetHeadroomRatio float64

	// Merchant familiarity: prior completed transactions with this
	// merchant, and the count at which familiarity saturates.
	PriorTransactionsWithMerchant int
	FamiliaritySaturation         int

	// Amount normalcy: how many standard deviations this transaction's
	// amount is from the agent's historical mean.
	AmountZScore float64

	// Time-of-day: the hour (0-23, agent-local) the transaction was
	// submitted, and the inclusive [start,end) window considered
	// "normal" operating hours.
	HourOfDay        int
	NormalHoursStart int
	NormalHoursEnd   int

	// Compliance history: count of policy/compliance violations
	// attributed to this agent.
	ViolationCount int
}

// Score is the full result of a confidence calculation: the raw factor
// sum, the calibrated [0,1] score, and the routing tier it discretizes
// to.
type Score struct {
	KYAFactor         float64
	BudgetFactor      float64
	FamiliarityFactor float64
	AmountNormalcy    float64
	TimeOfDayFactor   float64
	ComplianceFactor  float64
	Raw               float64
	Calibrated        float64
	Level             Level
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func kyaFactor(level KYALevel) float64 {
	return kyaWeight[level]
}

func budgetFactor(headroomRatio float64) float64 {
	return clamp(headroomRatio, 0, 1) * 0.25
}

func familiarityFactor(priorTxCount, saturation int) float64 {
	if saturation <= 0 {
		saturation = 10
	}
	ratio := float64(priorTxCount) / float64(saturation)
	return clamp(ratio, 0, 1) * 0.20
}

func amountNormalcyFactor(zScore float64) float64 {
	absZ := math.Abs(zScore)
	normalcy := 1 - absZ/3
	return clamp(normalcy, 0, 1) * 0.15
}

func timeOfDayFactor(hour, normalStart, normalEnd int) float64 {
	if hour >= normalStart && hour < normalEnd {
		return 0.05
	}
	return 0.0
}

func complianceFactor(violationCount int) float64 {
	return clamp(0.05-float64(violationCount)*0.01, 0, 0.05)
}

// CalculateConfidence combines the six bounded factors into a calibrated
// [0,1] score and discretizes it into a routing Level.
func CalculateConfidence(in Inputs) Score {
	s := Score{
		KYAFactor:         kyaFactor(in.KYA),
		BudgetFactor:      budgetFactor(in.BudgetHeadroomRatio),
		FamiliarityFactor: familiarityFactor(in.PriorTransactionsWithMerchant, in.FamiliaritySaturation),
		AmountNormalcy:    amountNormalcyFactor(in.AmountZScore),
		TimeOfDayFactor:   timeOfDayFactor(in.HourOfDay, in.NormalHoursStart, in.NormalHoursEnd),
		ComplianceFactor:  complianceFactor(in.ViolationCount),
	}
	s.Raw = s.KYAFactor + s.BudgetFactor + s.FamiliarityFactor + s.AmountNormalcy + s.TimeOfDayFactor + s.ComplianceFactor

	sigmoid := 1 / (1 + math.Exp(-5*(s.Raw+0.03)))
	s.Calibrated = clamp(sigmoid, 0, 1)
	s.Level = levelFor(s.Calibrated)
	return s
}

func levelFor(calibrated float64) Level {
	switch {
	case calibrated >= 0.95:
		return LevelAutoApprove
	case calibrated >= 0.85:
		return LevelManagerApproval
	case calibrated >= 0.70:
		return LevelMultiSig
	default:
		return LevelHumanRewrite
	}
}
