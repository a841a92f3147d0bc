package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Deal action outcomes.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// DealMetrics records deal room transitions and their side effects.
type DealMetrics struct {
	transitions   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	notifyFailure *prometheus.CounterVec
}

// NewDealMetrics registers the deal metrics on the provided registerer.
func NewDealMetrics(reg prometheus.Registerer) *DealMetrics {
	if reg == nil {
		return &DealMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "deal",
		Name:      "transitions_total",
		Help:      "Deal room actions by outcome.",
	}, []string{"action", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "deal",
		Name:      "action_duration_seconds",
		Help:      "Latency of deal room actions including reload.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "deal",
		Name:      "conflict_retries_total",
		Help:      "Optimistic concurrency retries by action.",
	}, []string{"action"})
	notifyFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "deal",
		Name:      "notification_failures_total",
		Help:      "Swallowed notification and email failures.",
	}, []string{"channel"})
	reg.MustRegister(transitions, duration, retries, notifyFailure)
	return &DealMetrics{
		transitions:   transitions,
		duration:      duration,
		retries:       retries,
		notifyFailure: notifyFailure,
	}
}

// ObserveAction records the outcome and latency of one action.
func (d *DealMetrics) ObserveAction(action, result string, elapsed time.Duration) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(result)).Inc()
	d.duration.WithLabelValues(normalizeLabel(action)).Observe(elapsed.Seconds())
}

// IncConflictRetry counts a re-read after a version conflict.
func (d *DealMetrics) IncConflictRetry(action string) {
	if d == nil || d.retries == nil {
		return
	}
	d.retries.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncNotificationFailure counts a swallowed delivery failure on channel ("in_app" or "email").
func (d *DealMetrics) IncNotificationFailure(channel string) {
	if d == nil || d.notifyFailure == nil {
		return
	}
	d.notifyFailure.WithLabelValues(normalizeLabel(channel)).Inc()
}
