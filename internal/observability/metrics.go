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
	transitionsTotal      *prometheus.CounterVec
	transitionFailsTotal  *prometheus.CounterVec
	numbersAllocatedTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_http_requests_total",
			Help: "Total number of application API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admission_http_latency_seconds",
			Help:    "Latency distribution for application API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_http_errors_total",
			Help: "Total number of error responses returned by application endpoints.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_status_transitions_total",
			Help: "Committed application status transitions.",
		}, []string{"trigger", "from", "to"})

		transitionFailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_status_transition_failures_total",
			Help: "Rejected or aborted application status transitions.",
		}, []string{"trigger", "reason"})

		numbersAllocatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_application_numbers_allocated_total",
			Help: "Application numbers issued per prefix.",
		}, []string{"prefix"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			transitionsTotal,
			transitionFailsTotal,
			numbersAllocatedTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// StatusTransitions counts committed transitions.
func StatusTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// StatusTransitionFailures counts transitions that did not commit.
func StatusTransitionFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionFailsTotal
}

// NumbersAllocated counts issued application numbers.
func NumbersAllocated() *prometheus.CounterVec {
	RegisterMetrics()
	return numbersAllocatedTotal
}

// MetricsHandler serves the default Prometheus registry, lifecycle counters included.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
