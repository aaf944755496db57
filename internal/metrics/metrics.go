// Package metrics exposes the service's Prometheus instrumentation. All
// collectors are registered against an injected registry; there is no
// package-level state, so tests can construct isolated instances.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service collectors. Every helper is safe to call on a
// nil receiver so wiring metrics stays optional in tests.
type Metrics struct {
	transitions     *prometheus.CounterVec
	storeOps        *prometheus.CounterVec
	certificates    *prometheus.CounterVec
	pipelineSeconds prometheus.Histogram
}

// New registers the service collectors with reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodues",
			Name:      "case_transitions_total",
			Help:      "Lifecycle transitions applied to clearance cases.",
		}, []string{"to_status"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodues",
			Name:      "store_operations_total",
			Help:      "Record store operations by outcome.",
		}, []string{"op", "outcome"}),
		certificates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodues",
			Name:      "certificates_generated_total",
			Help:      "Certificate artifacts by generation outcome.",
		}, []string{"outcome"}),
		pipelineSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nodues",
			Name:      "certificate_pipeline_seconds",
			Help:      "Wall-clock duration of whole certificate pipeline runs.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.transitions, m.storeOps, m.certificates, m.pipelineSeconds)
	return m
}

// CaseTransition counts a lifecycle transition into the given status.
func (m *Metrics) CaseTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(toStatus).Inc()
}

// StoreOp counts a record store operation.
func (m *Metrics) StoreOp(op, outcome string) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(op, outcome).Inc()
}

// Certificate counts one artifact outcome ("success" or "failed").
func (m *Metrics) Certificate(outcome string) {
	if m == nil {
		return
	}
	m.certificates.WithLabelValues(outcome).Inc()
}

// PipelineDuration records a whole pipeline run.
func (m *Metrics) PipelineDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineSeconds.Observe(d.Seconds())
}
