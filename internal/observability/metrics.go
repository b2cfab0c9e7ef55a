package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/danmuck/wlgen/internal/model"
)

const namespace = "wlgen"

// Metrics owns a registry so runs and tests never share collectors.
type Metrics struct {
	registry *prometheus.Registry

	protocols  prometheus.Counter
	interfaces prometheus.Counter
	requests   prometheus.Counter
	events     prometheus.Counter
	enums      prometheus.Counter
	failures   *prometheus.CounterVec
	duration   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		protocols: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "protocols_total",
			Help:      "Protocols emitted.",
		}),
		interfaces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "interfaces_total",
			Help:      "Interfaces emitted.",
		}),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "requests_total",
			Help:      "Requests emitted.",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "events_total",
			Help:      "Events emitted.",
		}),
		enums: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "enums_total",
			Help:      "Enums emitted.",
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generate",
				Name:      "failures_total",
				Help:      "Failed generation runs by cause.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generate",
			Name:      "duration_seconds",
			Help:      "Generation run duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	m.registry.MustRegister(
		m.protocols, m.interfaces, m.requests, m.events, m.enums,
		m.failures, m.duration, m.httpRequests, m.httpDuration,
	)
	return m
}

// WithProcessCollectors adds the Go runtime and process collectors. Only
// long-running servers want them.
func (m *Metrics) WithProcessCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordGeneration(protocols int, counts model.Counts, duration time.Duration) {
	m.protocols.Add(float64(protocols))
	m.interfaces.Add(float64(counts.Interfaces))
	m.requests.Add(float64(counts.Requests))
	m.events.Add(float64(counts.Events))
	m.enums.Add(float64(counts.Enums))
	m.duration.Observe(duration.Seconds())
}

func (m *Metrics) RecordFailure(kind string, duration time.Duration) {
	m.failures.WithLabelValues(kind).Inc()
	m.duration.Observe(duration.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("metrics textfile %s: %w", path, err)
	}
	return nil
}
