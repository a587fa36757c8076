// Package metrics exposes Prometheus instruments for sync runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "granola_sync"

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	documents   *prometheus.CounterVec
	attachments prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	inFlight    prometheus.Gauge
}

// New creates a registry with process and Go collectors plus the sync
// instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by outcome.",
		}, []string{"outcome"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by reconciliation action.",
		}, []string{"action"}),
		attachments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_written_total",
			Help:      "Attachment files written to the vault.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a sync run is active.",
		}),
	}
	reg.MustRegister(m.runs, m.documents, m.attachments, m.duration, m.lastSuccess, m.inFlight)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted marks a run as active.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.inFlight.Set(1)
}

// RunFinished records the outcome and duration of a run.
func (m *Metrics) RunFinished(outcome string, elapsed time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.inFlight.Set(0)
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if outcome == "complete" {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// Document counts one reconciled document.
func (m *Metrics) Document(action string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(action).Inc()
}

// AttachmentsWritten adds n written attachment files.
func (m *Metrics) AttachmentsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attachments.Add(float64(n))
}
