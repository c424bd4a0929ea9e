package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine activity with Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	nodesStored  *prometheus.CounterVec
	storeErrors  prometheus.Counter
}

// NewMetrics creates the engine collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calcfunction_calls_total",
				Help:      "Total number of calcfunction calls by final process state",
			},
			[]string{"function", "state"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "calcfunction_duration_seconds",
				Help:      "Duration of calcfunction execution including the store write",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"function"},
		),
		nodesStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_stored_total",
				Help:      "Total number of nodes written to the provenance store",
			},
			[]string{"node_type"},
		),
		storeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of failed provenance writes",
			},
		),
	}

	registry.MustRegister(m.calls, m.callDuration, m.nodesStored, m.storeErrors)
	return m
}

// Registry returns the registry holding the engine collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) recordCall(function, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(function, state).Inc()
	m.callDuration.WithLabelValues(function).Observe(d.Seconds())
}

func (m *Metrics) recordStored(nodeType string) {
	if m == nil {
		return
	}
	m.nodesStored.WithLabelValues(nodeType).Inc()
}

func (m *Metrics) recordStoreError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
