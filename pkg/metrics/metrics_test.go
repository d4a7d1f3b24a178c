package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCheckoutMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.ObserveSubmit("partial", 120*time.Millisecond)
	m.IncVendorOrder("ok")
	m.IncVendorOrder("ok")
	m.IncVendorOrder("failed")
	m.IncDiscountRejected("shipping", "stale")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "checkout_vendor_orders_total", "outcome", "ok"); err != nil {
		t.Fatalf("fetch ok: %v", err)
	} else if got != 2 {
		t.Fatalf("expected ok=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_discount_rejections_total", "reason", "stale"); err != nil {
		t.Fatalf("fetch rejections: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rejections=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "checkout_submit_duration_seconds", "outcome", "partial"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestOrderAndRealtimeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	orders := NewOrderMetrics(reg)
	rt := NewRealtimeMetrics(reg)

	orders.IncTransition("paid", "processing", "vendor")
	orders.IncRejected("")
	rt.IncState("backoff")
	rt.IncState("backoff")
	rt.IncDialFailure()
	rt.IncEvent("order:updated")
	rt.IncPublished("order:updated")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "order_transitions_total", "to", "processing"); got != 1 {
		t.Fatalf("expected one transition, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "order_transitions_rejected_total", "reason", "unknown"); got != 1 {
		t.Fatalf("expected empty reason normalized to unknown, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "realtime_state_changes_total", "state", "backoff"); got != 2 {
		t.Fatalf("expected two backoff transitions, got %f", got)
	}
	mf := findMetricFamily(mfs, "realtime_dial_failures_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one dial failure")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var c *CheckoutMetrics
	c.ObserveSubmit("ok", time.Second)
	c.IncVendorOrder("ok")
	var o *OrderMetrics
	o.IncTransition("a", "b", "c")
	r := NewRealtimeMetrics(nil)
	r.IncState("open")
	r.IncDialFailure()
}

func TestJobMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.ObserveRun("offer_expiry", 40*time.Millisecond, nil)
	m.ObserveRun("offer_expiry", 10*time.Millisecond, fmt.Errorf("db down"))
	m.AddItems("offer_expiry", 3)
	m.AddItems("offer_expiry", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "job_runs_total", "result", "failure"); got != 1 {
		t.Fatalf("expected one failed run, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "job_items_processed_total", "job", "offer_expiry"); got != 3 {
		t.Fatalf("expected 3 items, got %f", got)
	}

	var nilMetrics *JobMetrics
	nilMetrics.ObserveRun("noop", time.Second, nil)
	nilMetrics.AddItems("noop", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
