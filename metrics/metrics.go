// Package metrics - Prometheus metrics for segmentation requests.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors for one pipeline, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	// StageLatency tracks per-stage latency.
	StageLatency *prometheus.HistogramVec
	// RequestsTotal counts requests by outcome and error kind.
	RequestsTotal *prometheus.CounterVec
	// QueueDepth is the number of jobs waiting for the worker.
	QueueDepth prometheus.Gauge
	// InitializationsTotal counts initializations by outcome.
	InitializationsTotal *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "segmentation_stage_latency_seconds",
				Help:    "Segmentation stage latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"stage"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmentation_requests_total",
				Help: "Total segmentation requests by outcome",
			},
			[]string{"outcome", "kind"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "segmentation_queue_depth",
				Help: "Jobs waiting on the serial worker",
			},
		),
		InitializationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segmentation_initializations_total",
				Help: "Total pipeline initializations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records one stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRequest counts a finished request. kind is empty on success.
func (m *Metrics) RecordRequest(kind string) {
	if kind == "" {
		m.RequestsTotal.WithLabelValues(OutcomeSuccess, "").Inc()
		return
	}
	m.RequestsTotal.WithLabelValues(OutcomeError, kind).Inc()
}

// RecordInitialization counts a finished initialization.
func (m *Metrics) RecordInitialization(err error) {
	if err != nil {
		m.InitializationsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.InitializationsTotal.WithLabelValues(OutcomeSuccess).Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, m.registry), "write metrics to %s", path)
}
