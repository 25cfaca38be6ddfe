package approval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseInputs() Inputs {
	return Inputs{
		KYA:                           KYAVerified,
		BudgetHeadroomRatio:           0.5,
		PriorTransactionsWithMerchant: 5,
		FamiliaritySaturation:         10,
		AmountZScore:                  0.2,
		HourOfDay:                     14,
		NormalHoursStart:              6,
		NormalHoursEnd:                22,
		ViolationCount:                0,
	}
}

func TestCalculateConfidenceProducesScoreWithinBounds(t *testing.T) {
	score := CalculateConfidence(baseInputs())
	require.GreaterOrEqual(t, score.Calibrated, 0.0)
	require.LessOrEqual(t, score.Calibrated, 1.0)
}

func TestCalculateConfidenceMaxFactorsRouteToAutoApprove(t *testing.T) {
	in := Inputs{
		KYA: KYAAttested, BudgetHeadroomRatio: 1.0,
		PriorTransactionsWithMerchant: 50, FamiliaritySaturation: 10,
		AmountZScore: 0, HourOfDay: 12, NormalHoursStart: 6, NormalHoursEnd: 22,
		ViolationCount: 0,
	}
	score := CalculateConfidence(in)
	require.Equal(t, LevelAutoApprove, score.Level)
	require.InDelta(t, 1.0, score.Raw, 1e-9)
}

func TestCalculateConfidenceZeroFactorsRouteToHumanRewrite(t *testing.T) {
	in := Inputs{
		KYA: KYANone, BudgetHeadroomRatio: 0,
		PriorTransactionsWithMerchant: 0, FamiliaritySaturation: 10,
		AmountZScore: 5, HourOfDay: 3, NormalHoursStart: 6, NormalHoursEnd: 22,
		ViolationCount: 10,
	}
	score := CalculateConfidence(in)
	require.Equal(t, LevelHumanRewrite, score.Level)
	require.InDelta(t, 0.0, score.Raw, 1e-9)
}

func TestConfidenceMonotonicInBudgetHeadroom(t *testing.T) {
	low := baseInputs()
	low.BudgetHeadroomRatio = 0.1
	high := baseInputs()
	high.BudgetHeadroomRatio = 0.9

	require.Greater(t, CalculateConfidence(high).Calibrated, CalculateConfidence(low).Calibrated)
}

func TestConfidenceMonotonicInMerchantFamiliarity(t *testing.T) {
	low := baseInputs()
	low.PriorTransactionsWithMerchant = 1
	high := baseInputs()
	high.PriorTransactionsWithMerchant = 9

	require.Greater(t, CalculateConfidence(high).Calibrated, CalculateConfidence(low).Calibrated)
}

func TestAmountNormalcyDecaysWithLargerZScore(t *testing.T) {
	near := baseInputs()
	near.AmountZScore = 0.1
	far := baseInputs()
	far.AmountZScore = 4.0

	require.Greater(t, CalculateConfidence(near).Calibrated, CalculateConfidence(far).Calibrated)
}

func TestTimeOfDayFactorAppliesOnlyInsideNormalWindow(t *testing.T) {
	inside := baseInputs()
	inside.HourOfDay = 10
	outside := baseInputs()
	outside.HourOfDay = 2

	require.Greater(t, CalculateConfidence(inside).Calibrated, CalculateConfidence(outside).Calibrated)
}

func TestComplianceFactorDecaysWithViolations(t *testing.T) {
	clean := baseInputs()
	clean.ViolationCount = 0
	violator := baseInputs()
	violator.ViolationCount = 5

	require.Greater(t, CalculateConfidence(clean).Calibrated, CalculateConfidence(violator).Calibrated)
}

func TestLevelForThresholds(t *testing.T) {
	require.Equal(t, LevelAutoApprove, levelFor(0.95))
	require.Equal(t, LevelManagerApproval, levelFor(0.90))
	require.Equal(t, LevelMultiSig, levelFor(0.75))
	require.Equal(t, LevelHumanRewrite, levelFor(0.5))
}
