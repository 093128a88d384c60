// Package metrics provides Prometheus metrics for the class registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the class registry.
type Metrics struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Domain metrics
	ClassesTotal        *prometheus.GaugeVec
	SwitchesTotal       *prometheus.CounterVec
	CompatibilityChecks *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "class_registry_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "class_registry_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "class_registry_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.ClassesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "class_registry_classes_total",
			Help: "Total number of registered classes by kind",
		},
		[]string{"kind"},
	)

	m.SwitchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "class_registry_switches_total",
			Help: "Total number of class switch attempts",
		},
		[]string{"kind", "result"},
	)

	m.CompatibilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "class_registry_compatibility_checks_total",
			Help: "Total number of compatibility analyses",
		},
		[]string{"kind", "result"},
	)

	m.ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "class_registry_validation_failures_total",
			Help: "Total number of property validation failures",
		},
		[]string{"operation"},
	)

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.ClassesTotal,
		m.SwitchesTotal,
		m.CompatibilityChecks,
		m.ValidationFailures,
	)

	// Also register the default collectors (go runtime, process info)
	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware returns HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip metrics endpoint itself
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.RequestsInFlight.Inc()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		// Normalize path for metrics (avoid high cardinality)
		path := normalizePath(r.URL.Path)

		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes a URL path to reduce cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/entities/") && strings.Contains(path, "/compatibility/"):
		return "/entities/{id}/compatibility/{class}"
	case strings.HasPrefix(path, "/entities/") && strings.HasSuffix(path, "/switch"):
		return "/entities/{id}/switch"
	case strings.HasPrefix(path, "/entities/"):
		return "/entities/{id}"
	case strings.HasPrefix(path, "/classes/") && strings.HasSuffix(path, "/validate"):
		return "/classes/{class}/validate"
	case strings.HasPrefix(path, "/classes/"):
		return "/classes/{class}"
	}
	return path
}

// RecordSwitch records a class switch attempt.
func (m *Metrics) RecordSwitch(kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.SwitchesTotal.WithLabelValues(kind, result).Inc()
}

// RecordCompatibilityCheck records a compatibility analysis result.
func (m *Metrics) RecordCompatibilityCheck(kind string, compatible bool) {
	result := "compatible"
	if !compatible {
		result = "incompatible"
	}
	m.CompatibilityChecks.WithLabelValues(kind, result).Inc()
}

// RecordValidationFailure records a rejected property bag.
func (m *Metrics) RecordValidationFailure(operation string) {
	m.ValidationFailures.WithLabelValues(operation).Inc()
}

// UpdateClassCount updates the class count for a kind.
func (m *Metrics) UpdateClassCount(kind string, count float64) {
	m.ClassesTotal.WithLabelValues(kind).Set(count)
}
