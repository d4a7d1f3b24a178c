package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records submission fan-out outcomes and discount rejections.
type CheckoutMetrics struct {
	submitDuration *prometheus.HistogramVec
	vendorOrders   *prometheus.CounterVec
	discountReject *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_submit_duration_seconds",
		Help:    "Duration of a checkout submission across all vendors.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	vendorOrders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_vendor_orders_total",
		Help: "Per-vendor order submissions by outcome.",
	}, []string{"outcome"})
	discountReject := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_discount_rejections_total",
		Help: "Discount selections dropped at confirmation time.",
	}, []string{"category", "reason"})
	reg.MustRegister(submitDuration, vendorOrders, discountReject)
	return &CheckoutMetrics{
		submitDuration: submitDuration,
		vendorOrders:   vendorOrders,
		discountReject: discountReject,
	}
}

// ObserveSubmit records how long a submission took. outcome is "ok", "partial" or "failed".
func (c *CheckoutMetrics) ObserveSubmit(outcome string, duration time.Duration) {
	if c == nil || c.submitDuration == nil {
		return
	}
	c.submitDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncVendorOrder counts one per-vendor submission result.
func (c *CheckoutMetrics) IncVendorOrder(outcome string) {
	if c == nil || c.vendorOrders == nil {
		return
	}
	c.vendorOrders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDiscountRejected counts a selection dropped during re-validation.
func (c *CheckoutMetrics) IncDiscountRejected(category, reason string) {
	if c == nil || c.discountReject == nil {
		return
	}
	c.discountReject.WithLabelValues(normalizeLabel(category), normalizeLabel(reason)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
