package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.ObserveEvent("deal_state_changed", OutboxPublished)
	m.ObserveEvent("deal_state_changed", OutboxPublished)
	m.ObserveEvent("deal_rated", OutboxDeadLettered)
	m.ObservePublish("pubsub", 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "dealerhub_outbox_events_total", "outcome", OutboxDeadLettered); err != nil {
		t.Fatalf("fetch dead lettered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "dealerhub_outbox_publish_duration_seconds", "broker", "pubsub"); err != nil {
		t.Fatalf("fetch latency: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f", got)
	}
}

func TestNilOutboxMetricsAreNoops(t *testing.T) {
	var m *OutboxMetrics
	m.ObserveEvent("deal_rated", OutboxRetry)
	NewOutboxMetrics(nil).ObservePublish("kafka", time.Second)
}
