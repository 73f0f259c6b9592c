package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pipeline outcomes and stage latencies.
type Metrics struct {
	jobsDispatched *prometheus.CounterVec
	jobsCompleted  *prometheus.CounterVec
	jobsFailed     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
}

// NewMetrics creates the pipeline collectors and registers them on reg. A nil
// registry leaves the collectors unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_dispatched_total",
				Help: "Transformation jobs handed to the worker pool",
			},
			[]string{"pipeline"},
		),
		jobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_completed_total",
				Help: "Transformation jobs that reached the completed status",
			},
			[]string{"pipeline"},
		),
		jobsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_jobs_failed_total",
				Help: "Transformation jobs that reached the error status",
			},
			[]string{"pipeline", "stage"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Wall time spent per pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"pipeline", "stage"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.jobsDispatched, m.jobsCompleted, m.jobsFailed, m.stageDuration)
	}
	return m
}

func (m *Metrics) dispatched(pipeline string) {
	if m == nil {
		return
	}
	m.jobsDispatched.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) completed(pipeline string) {
	if m == nil {
		return
	}
	m.jobsCompleted.WithLabelValues(pipeline).Inc()
}

func (m *Metrics) failed(pipeline, stage string) {
	if m == nil {
		return
	}
	m.jobsFailed.WithLabelValues(pipeline, stage).Inc()
}

func (m *Metrics) observeStage(pipeline, stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(pipeline, stage).Observe(seconds)
}
