// Package observability exposes the process-wide Prometheus collectors:
// orchestrator outcomes, webhook delivery attempts, policy decisions, and
// the confidence router's score distribution. Each registry is a lazily
// initialised singleton, following the same sync.Once-guarded pattern
// regardless of which subsystem it instruments.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type orchestratorMetrics struct {
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	orchestratorMetricsOnce sync.Once
	orchestratorRegistry    *orchestratorMetrics

	webhookMetricsOnce sync.Once
	webhookRegistry    *webhookMetrics

	policyMetricsOnce sync.Once
	policyRegistry    *policyMetrics

	confidenceMetricsOnce sync.Once
	confidenceRegistry    *confidenceMetrics
)

// Orchestrator returns the singleton metrics registry for payment
// orchestration outcomes.
func Orchestrator() *orchestratorMetrics {
	orchestratorMetricsOnce.Do(func() {
		orchestratorRegistry = &orchestratorMetrics{
			outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "orchestrator",
				Name:      "executions_total",
				Help:      "Count of orchestrator payment executions segmented by chain and outcome.",
			}, []string{"chain", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agentpay",
				Subsystem: "orchestrator",
				Name:      "execution_duration_seconds",
				Help:      "Latency distribution for the policy -> compliance -> dispatch -> ledger sequence.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"chain"}),
		}
		prometheus.MustRegister(orchestratorRegistry.outcomes, orchestratorRegistry.latency)
	})
	return orchestratorRegistry
}

// Observe records one orchestrator execution. outcome should be a stable
// string such as "submitted", "policy_denied", "compliance_denied", or
// "transaction_failed".
func (m *orchestratorMetrics) Observe(chain, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	chain = nonEmpty(chain, "unknown")
	outcome = nonEmpty(outcome, "unknown")
	m.outcomes.WithLabelValues(chain, outcome).Inc()
	m.latency.WithLabelValues(chain).Observe(duration.Seconds())
}

type webhookMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Webhook returns the singleton metrics registry for webhook delivery.
func Webhook() *webhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookRegistry = &webhookMetrics{
			attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "webhook",
				Name:      "delivery_attempts_total",
				Help:      "Count of webhook delivery attempts segmented by event type and outcome.",
			}, []string{"event_type", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agentpay",
				Subsystem: "webhook",
				Name:      "delivery_duration_seconds",
				Help:      "Latency distribution for webhook HTTP delivery attempts.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"event_type"}),
		}
		prometheus.MustRegister(webhookRegistry.attempts, webhookRegistry.latency)
	})
	return webhookRegistry
}

// Observe records one webhook delivery attempt. outcome should be
// "delivered", "retrying", or "failed".
func (m *webhookMetrics) Observe(eventType, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	eventType = nonEmpty(eventType, "unknown")
	outcome = nonEmpty(outcome, "unknown")
	m.attempts.WithLabelValues(eventType, outcome).Inc()
	m.latency.WithLabelValues(eventType).Observe(duration.Seconds())
}

type policyMetrics struct {
	decisions *prometheus.CounterVec
}

// Policy returns the singleton metrics registry for policy engine decisions.
func Policy() *policyMetrics {
	policyMetricsOnce.Do(func() {
		policyRegistry = &policyMetrics{
			decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agentpay",
				Subsystem: "policy",
				Name:      "decisions_total",
				Help:      "Count of spending policy decisions segmented by allowed/denied and reason.",
			}, []string{"allowed", "reason"}),
		}
		prometheus.MustRegister(policyRegistry.decisions)
	})
	return policyRegistry
}

// RecordDecision records one policy.Evaluate outcome.
func (m *policyMetrics) RecordDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	reason = nonEmpty(reason, "none")
	allowedLabel := "false"
	if allowed {
		allowedLabel = "true"
	}
	m.decisions.WithLabelValues(allowedLabel, reason).Inc()
}

type confidenceMetrics struct {
	score *prometheus.HistogramVec
}

// Confidence returns the singleton metrics registry for the approval
// confidence router.
func Confidence() *confidenceMetrics {
	confidenceMetricsOnce.Do(func() {
		confidenceRegistry = &confidenceMetrics{
			score: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agentpay",
				Subsystem: "approval",
				Name:      "confidence_score",
				Help:      "Distribution of calibrated confidence scores segmented by routing level.",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			}, []string{"level"}),
		}
		prometheus.MustRegister(confidenceRegistry.score)
	})
	return confidenceRegistry
}

// Observe records one confidence calculation's calibrated score.
func (m *confidenceMetrics) Observe(level string, calibrated float64) {
	if m == nil {
		return
	}
	m.score.WithLabelValues(nonEmpty(level, "unknown")).Observe(calibrated)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
