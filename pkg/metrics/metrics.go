// Package metrics exposes Prometheus instrumentation for call handling.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	registry *prometheus.Registry

	// Call metrics
	CallsActive  prometheus.Gauge
	CallsTotal   *prometheus.CounterVec
	CallDuration prometheus.Histogram

	// Turn metrics
	TurnsTotal *prometheus.CounterVec

	// Audio metrics
	IngressFramesTotal  prometheus.Counter
	DroppedFramesTotal  prometheus.Counter
	EgressChunksTotal   prometheus.Counter
	EgressBytesTotal    prometheus.Counter
	CheckpointsTotal    prometheus.Counter
	BargeInsTotal       prometheus.Counter

	// Error metrics
	CollaboratorErrorsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "callbridge"
	}

	registry := prometheus.NewRegistry()

	callsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of live call streams",
		},
	)

	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of call streams handled",
		},
		[]string{"status"},
	)

	callDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Call stream duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total user turns processed",
		},
		[]string{"status"},
	)

	ingressFramesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_frames_total",
			Help:      "Caller audio frames relayed to transcription",
		},
	)

	droppedFramesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Caller audio frames dropped before transcription was ready",
		},
	)

	egressChunksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "egress_chunks_total",
			Help:      "Synthesized audio chunks sent to the telephony leg",
		},
	)

	egressBytesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "egress_bytes_total",
			Help:      "Synthesized audio bytes sent to the telephony leg",
		},
	)

	checkpointsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Playback completion checkpoints emitted",
		},
	)

	bargeInsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Replies interrupted by the caller speaking again",
		},
	)

	collaboratorErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Errors from external collaborators",
		},
		[]string{"collaborator"},
	)

	registry.MustRegister(
		callsActive,
		callsTotal,
		callDuration,
		turnsTotal,
		ingressFramesTotal,
		droppedFramesTotal,
		egressChunksTotal,
		egressBytesTotal,
		checkpointsTotal,
		bargeInsTotal,
		collaboratorErrorsTotal,
	)

	return &Metrics{
		registry:                registry,
		CallsActive:             callsActive,
		CallsTotal:              callsTotal,
		CallDuration:            callDuration,
		TurnsTotal:              turnsTotal,
		IngressFramesTotal:      ingressFramesTotal,
		DroppedFramesTotal:      droppedFramesTotal,
		EgressChunksTotal:       egressChunksTotal,
		EgressBytesTotal:        egressBytesTotal,
		CheckpointsTotal:        checkpointsTotal,
		BargeInsTotal:           bargeInsTotal,
		CollaboratorErrorsTotal: collaboratorErrorsTotal,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCallStart records a new call stream opening.
func (m *Metrics) RecordCallStart() {
	m.CallsActive.Inc()
}

// RecordCallEnd records a call stream closing.
func (m *Metrics) RecordCallEnd(status string, duration time.Duration) {
	m.CallsActive.Dec()
	m.CallsTotal.WithLabelValues(status).Inc()
	m.CallDuration.Observe(duration.Seconds())
}

// RecordTurn records one processed user turn.
func (m *Metrics) RecordTurn(status string) {
	m.TurnsTotal.WithLabelValues(status).Inc()
}

// RecordEgress records one synthesized chunk sent to the call.
func (m *Metrics) RecordEgress(bytes int) {
	m.EgressChunksTotal.Inc()
	m.EgressBytesTotal.Add(float64(bytes))
}

// RecordCollaboratorError records a failure from an external service.
func (m *Metrics) RecordCollaboratorError(collaborator string) {
	m.CollaboratorErrorsTotal.WithLabelValues(collaborator).Inc()
}
