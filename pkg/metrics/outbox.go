package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics records what the publisher did with each deal event.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewOutboxMetrics registers the outbox publisher metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled by the publisher, by type and outcome.",
	}, []string{"event_type", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_duration_seconds",
		Help:      "Broker publish latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"broker"})
	reg.MustRegister(events, latency)
	return &OutboxMetrics{events: events, latency: latency}
}

// ObserveEvent counts one handled event.
func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

// ObservePublish records one broker round trip.
func (m *OutboxMetrics) ObservePublish(broker string, elapsed time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(broker).Observe(elapsed.Seconds())
}
