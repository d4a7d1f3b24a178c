package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records scheduled job runs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of scheduled jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job executions by result.",
	}, []string{"job", "result"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_items_processed_total",
		Help: "Rows changed by scheduled jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, items)
	return &JobMetrics{duration: duration, runs: runs, items: items}
}

func (j *JobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if j == nil || j.duration == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(took.Seconds())
	j.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func (j *JobMetrics) AddItems(job string, n int) {
	if j == nil || j.items == nil || n <= 0 {
		return
	}
	j.items.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
