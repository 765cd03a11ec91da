package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchJobMetrics records metadata for background batch runs.
type BatchJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	captions *prometheus.CounterVec
}

// NewBatchJobMetrics registers the batch job metrics on the provided registerer.
func NewBatchJobMetrics(reg prometheus.Registerer) *BatchJobMetrics {
	if reg == nil {
		return &BatchJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_job_duration_seconds",
		Help:    "Duration of batch jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_job_success",
		Help: "Successful batch job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_job_failure",
		Help: "Failed batch job executions.",
	}, []string{"job"})
	captions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "captions_processed",
		Help: "Captions processed by batch runs, by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, success, failure, captions)
	return &BatchJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		captions: captions,
	}
}

// ObserveDuration records the duration for the named job.
func (b *BatchJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (b *BatchJobMetrics) IncSuccess(job string) {
	if b == nil || b.success == nil {
		return
	}
	b.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (b *BatchJobMetrics) IncFailure(job string) {
	if b == nil || b.failure == nil {
		return
	}
	b.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// AddCaptions records per-caption outcomes for the named job.
func (b *BatchJobMetrics) AddCaptions(job, outcome string, count int) {
	if b == nil || b.captions == nil || count <= 0 {
		return
	}
	b.captions.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Add(float64(count))
}

func normalizeLabel(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}
