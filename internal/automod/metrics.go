package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the automod counters. A nil *Metrics records nothing.
type Metrics struct {
	violations        *prometheus.CounterVec
	actions           *prometheus.CounterVec
	enforcementErrors *prometheus.CounterVec
	blocklistRefresh  *prometheus.CounterVec
	blocklistDomains  prometheus.Gauge
}

// NewMetrics registers the automod metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automod_violations_total",
			Help: "Number of messages that violated a policy",
		}, []string{"policy"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automod_actions_total",
			Help: "Number of moderation actions applied",
		}, []string{"action"}),
		enforcementErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automod_enforcement_errors_total",
			Help: "Number of failed enforcement steps",
		}, []string{"step"}),
		blocklistRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automod_blocklist_refreshes_total",
			Help: "Number of blocklist refresh attempts",
		}, []string{"result"}),
		blocklistDomains: factory.NewGauge(prometheus.GaugeOpts{
			Name: "automod_blocklist_domains",
			Help: "Number of malicious domains in the last stored blocklist",
		}),
	}
}

func (m *Metrics) violation(policyType PolicyType) {
	if m != nil {
		m.violations.WithLabelValues(policyType.String()).Inc()
	}
}

func (m *Metrics) action(action string) {
	if m != nil {
		m.actions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) enforcementError(step string) {
	if m != nil {
		m.enforcementErrors.WithLabelValues(step).Inc()
	}
}

func (m *Metrics) refresh(result string, domains int) {
	if m == nil {
		return
	}

	m.blocklistRefresh.WithLabelValues(result).Inc()

	if domains > 0 {
		m.blocklistDomains.Set(float64(domains))
	}
}
