package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dprint_csharpier"

// Format outcomes passed to the FormatStarted callback.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the worker's collectors on a private registry. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	messages          *prometheus.CounterVec
	formats           *prometheus.CounterVec
	formatDuration    prometheus.Histogram
	formatsInFlight   prometheus.Gauge
	registeredConfigs prometheus.Gauge
	cancelRequests    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "protocol",
				Name:      "messages_total",
				Help:      "Messages received from the host, by kind.",
			},
			[]string{"kind"},
		),
		formats: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "format",
				Name:      "requests_total",
				Help:      "Completed format requests, by outcome.",
			},
			[]string{"outcome"},
		),
		formatDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "format",
				Name:      "duration_seconds",
				Help:      "Format request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		formatsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "format",
				Name:      "in_flight",
				Help:      "Format requests currently running.",
			},
		),
		registeredConfigs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "config",
				Name:      "registered",
				Help:      "Configuration sets currently registered.",
			},
		),
		cancelRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "format",
				Name:      "cancel_requests_total",
				Help:      "CancelFormat requests, by whether the target was in flight.",
			},
			[]string{"found"},
		),
	}
	m.registry.MustRegister(
		m.messages,
		m.formats,
		m.formatDuration,
		m.formatsInFlight,
		m.registeredConfigs,
		m.cancelRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordMessage(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

// FormatStarted marks one format in flight; the returned func records its
// outcome and duration.
func (m *Metrics) FormatStarted() func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.formatsInFlight.Inc()
	return func(outcome string) {
		m.formatsInFlight.Dec()
		m.formats.WithLabelValues(outcome).Inc()
		m.formatDuration.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordCancel(found bool) {
	if m == nil {
		return
	}
	if found {
		m.cancelRequests.WithLabelValues("true").Inc()
		return
	}
	m.cancelRequests.WithLabelValues("false").Inc()
}

func (m *Metrics) SetRegisteredConfigs(n int) {
	if m == nil {
		return
	}
	m.registeredConfigs.Set(float64(n))
}

// Handler serves the private registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
