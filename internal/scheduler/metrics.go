package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler counters. A nil *Metrics records nothing.
type Metrics struct {
	failures *prometheus.CounterVec
	disabled *prometheus.CounterVec
	running  prometheus.Gauge
}

// NewMetrics registers the scheduler metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_failures_total",
			Help: "Number of failed job runs",
		}, []string{"job"}),
		disabled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_jobs_disabled_total",
			Help: "Number of jobs disabled after exhausting retries",
		}, []string{"job"}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scheduler_jobs_running",
			Help: "Number of supervised jobs",
		}),
	}
}

func (m *Metrics) failure(job string) {
	if m != nil {
		m.failures.WithLabelValues(job).Inc()
	}
}

func (m *Metrics) disable(job string) {
	if m != nil {
		m.disabled.WithLabelValues(job).Inc()
	}
}

func (m *Metrics) started() {
	if m != nil {
		m.running.Inc()
	}
}

func (m *Metrics) finished() {
	if m != nil {
		m.running.Dec()
	}
}
