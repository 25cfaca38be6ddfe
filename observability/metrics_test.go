package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrchestratorMetricsIsASingleton(t *testing.T) {
	a := Orchestrator()
	b := Orchestrator()
	require.Same(t, a, b)
	require.NotPanics(t, func() { a.Observe("base", "submitted", 10*time.Millisecond) })
}

func TestOrchestratorMetricsNilReceiverIsNoOp(t *testing.T) {
	var m *orchestratorMetrics
	require.NotPanics(t, func() { m.Observe("base", "submitted", time.Millisecond) })
}

func TestWebhookMetricsObserve(t *testing.T) {
	m := Webhook()
	require.NotPanics(t, func() { m.Observe("payment.submitted", "delivered", 5*time.Millisecond) })
}

func TestPolicyMetricsRecordDecision(t *testing.T) {
	m := Policy()
	require.NotPanics(t, func() { m.RecordDecision(false, "per_tx_limit_exceeded") })
	require.NotPanics(t, func() { m.RecordDecision(true, "") })
}

func TestConfidenceMetricsObserve(t *testing.T) {
	m := Confidence()
	require.NotPanics(t, func() { m.Observe("auto_approve", 0.92) })
}
