// Package metrics counts per-type record outcomes for one run and can dump
// them in the Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orgsync"

// Outcome labels.
const (
	OutcomeImported  = "imported"
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeDeleted   = "deleted"
	OutcomeToAdd     = "to_add"
	OutcomeToUpdate  = "to_update"
)

// Recorder receives orchestrator events.
type Recorder interface {
	RecordOutcome(resourceType string, outcome string)
	RecordFetchFailure(resourceType string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordOutcome(string, string) {}
func (Nop) RecordFetchFailure(string)    {}

// RunMetrics registers the run counters on a private registry.
type RunMetrics struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
}

func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_operations_total",
				Help:      "Records processed per resource type and outcome.",
			},
			[]string{"resource_type", "outcome"},
		),
		fetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Resource types skipped because listing them failed.",
			},
			[]string{"resource_type"},
		),
	}
	m.registry.MustRegister(m.operations, m.fetchFailures)
	return m
}

func (m *RunMetrics) RecordOutcome(resourceType string, outcome string) {
	m.operations.WithLabelValues(resourceType, outcome).Inc()
}

func (m *RunMetrics) RecordFetchFailure(resourceType string) {
	m.fetchFailures.WithLabelValues(resourceType).Inc()
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every counter to path, node-exporter textfile style.
func (m *RunMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
