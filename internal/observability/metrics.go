package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	backendRequestsTotal  *prometheus.CounterVec
	backendLatencySeconds *prometheus.HistogramVec
	gateTransitionsTotal  *prometheus.CounterVec
	staleRunResultsTotal  prometheus.Counter
	eventsPublishedTotal  *prometheus.CounterVec
	workspacesActiveGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of portal API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_latency_seconds",
			Help:    "Latency distribution for portal API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_errors_total",
			Help: "Total number of error responses returned by the portal.",
		}, []string{"method", "route", "status"})

		backendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Calls made to the learning backend by operation and outcome.",
		}, []string{"operation", "outcome"})

		backendLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_latency_seconds",
			Help:    "Latency distribution for learning backend calls.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"operation"})

		gateTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_gate_transitions_total",
			Help: "Submission gate transitions by resulting state.",
		}, []string{"state"})

		staleRunResultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_stale_run_results_total",
			Help: "Run results discarded because a newer run or another exercise superseded them.",
		})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_events_published_total",
			Help: "Domain events published by transport and event type.",
		}, []string{"transport", "type"})

		workspacesActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_workspaces_active",
			Help: "Number of exercise workspaces held in memory.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			backendRequestsTotal,
			backendLatencySeconds,
			gateTransitionsTotal,
			staleRunResultsTotal,
			eventsPublishedTotal,
			workspacesActiveGauge,
		)
	})
}

// HTTPRequests exposes the counter for portal requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for portal requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for portal error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// BackendRequests exposes the counter for learning backend calls.
func BackendRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return backendRequestsTotal
}

// BackendLatency exposes the latency histogram for learning backend calls.
func BackendLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return backendLatencySeconds
}

// GateTransitions exposes the counter of submission gate transitions.
func GateTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return gateTransitionsTotal
}

// StaleRunResults exposes the counter of discarded run results.
func StaleRunResults() prometheus.Counter {
	RegisterMetrics()
	return staleRunResultsTotal
}

// EventsPublished exposes the counter of published domain events.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// WorkspacesActive exposes the gauge of in-memory workspaces.
func WorkspacesActive() prometheus.Gauge {
	RegisterMetrics()
	return workspacesActiveGauge
}

// MetricsHandler serves the portal's collectors on the default Prometheus registry.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
