package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	lifecycleTransitions  *prometheus.CounterVec
	lifecycleRejections   *prometheus.CounterVec
	assignmentsAutoClosed prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		lifecycleTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_lifecycle_transitions_total",
			Help: "Accepted lifecycle transitions by entity and state pair.",
		}, []string{"entity", "from", "to"})

		lifecycleRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_lifecycle_rejections_total",
			Help: "Rejected lifecycle requests by entity and rejection code.",
		}, []string{"entity", "code"})

		assignmentsAutoClosed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lms_assignments_auto_closed_total",
			Help: "Assignments closed by the deadline sweeper.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			lifecycleTransitions,
			lifecycleRejections,
			assignmentsAutoClosed,
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

// RecordTransition counts an accepted state change. Creations use an empty from.
func RecordTransition(entity, from, to string) {
	RegisterMetrics()
	if from == "" {
		from = "none"
	}
	lifecycleTransitions.WithLabelValues(entity, from, to).Inc()
}

// RecordRejection counts a rejected lifecycle request.
func RecordRejection(entity, code string) {
	RegisterMetrics()
	lifecycleRejections.WithLabelValues(entity, code).Inc()
}

// AssignmentsAutoClosed exposes the sweeper counter.
func AssignmentsAutoClosed() prometheus.Counter {
	RegisterMetrics()
	return assignmentsAutoClosed
}

// LifecycleTransitions exposes the transition counter, mainly for tests.
func LifecycleTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleTransitions
}

// LifecycleRejections exposes the rejection counter, mainly for tests.
func LifecycleRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleRejections
}
