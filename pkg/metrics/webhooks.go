package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records counters for the inbound notification pipeline.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	outcome   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Inbound webhook notifications accepted at the boundary.",
	}, []string{"provider"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Inbound notifications short-circuited as redeliveries.",
	}, []string{"provider"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_outcome",
		Help: "Reconciliation passes by resulting checkout order status.",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
	reg.MustRegister(received, duplicate, outcome, duration)
	return &WebhookMetrics{
		received:  received,
		duplicate: duplicate,
		outcome:   outcome,
		duration:  duration,
	}
}

// IncReceived counts an accepted inbound notification.
func (m *WebhookMetrics) IncReceived(provider string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncDuplicate counts a deduplicated redelivery.
func (m *WebhookMetrics) IncDuplicate(provider string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncOutcome counts a reconciliation pass by final status.
func (m *WebhookMetrics) IncOutcome(status string) {
	if m == nil || m.outcome == nil {
		return
	}
	m.outcome.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveDuration records the latency of a reconciliation pass.
func (m *WebhookMetrics) ObserveDuration(trigger string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(trigger)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
