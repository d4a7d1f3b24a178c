package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks the push channel on either side of the connection.
type RealtimeMetrics struct {
	stateChanges *prometheus.CounterVec
	dialFailures prometheus.Counter
	events       *prometheus.CounterVec
	published    *prometheus.CounterVec
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	stateChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_state_changes_total",
		Help: "Notifier state transitions by destination state.",
	}, []string{"state"})
	dialFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_dial_failures_total",
		Help: "Failed attempts to open the push channel.",
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_received_total",
		Help: "Push events received by type.",
	}, []string{"type"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_published_total",
		Help: "Push events published by type.",
	}, []string{"type"})
	reg.MustRegister(stateChanges, dialFailures, events, published)
	return &RealtimeMetrics{
		stateChanges: stateChanges,
		dialFailures: dialFailures,
		events:       events,
		published:    published,
	}
}

func (r *RealtimeMetrics) IncState(state string) {
	if r == nil || r.stateChanges == nil {
		return
	}
	r.stateChanges.WithLabelValues(normalizeLabel(state)).Inc()
}

func (r *RealtimeMetrics) IncDialFailure() {
	if r == nil || r.dialFailures == nil {
		return
	}
	r.dialFailures.Inc()
}

func (r *RealtimeMetrics) IncEvent(eventType string) {
	if r == nil || r.events == nil {
		return
	}
	r.events.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (r *RealtimeMetrics) IncPublished(eventType string) {
	if r == nil || r.published == nil {
		return
	}
	r.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}
