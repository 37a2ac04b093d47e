package automod

import (
	dto "github.com/prometheus/client_model/go"
)

// ActionCount returns the recorded number of actions of a kind.
func ActionCount(m *Metrics, action string) float64 {
	var metric dto.Metric
	if err := m.actions.WithLabelValues(action).Write(&metric); err != nil {
		return -1
	}

	return metric.GetCounter().GetValue()
}

// ViolationCount returns the recorded number of violations of a policy type.
func ViolationCount(m *Metrics, policyType PolicyType) float64 {
	var metric dto.Metric
	if err := m.violations.WithLabelValues(policyType.String()).Write(&metric); err != nil {
		return -1
	}

	return metric.GetCounter().GetValue()
}
