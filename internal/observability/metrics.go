package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	sessionsActivated     prometheus.Counter
	analyticsCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the evaluation API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_api_requests_total",
			Help: "Total number of evaluation API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_api_latency_seconds",
			Help:    "Latency distribution for evaluation API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_api_errors_total",
			Help: "Total number of error responses returned by evaluation endpoints.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_submissions_total",
			Help: "Submission attempts grouped by outcome.",
		}, []string{"outcome"})

		sessionsActivated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_sessions_activated_total",
			Help: "Evaluation sessions switched to active.",
		})

		analyticsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_analytics_cache_lookups_total",
			Help: "Analytics cache lookups grouped by result.",
		}, []string{"result"})

		registry.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsTotal,
			sessionsActivated,
			analyticsCacheLookups,
		)
		registry.MustRegister(runtimeCollectors()...)
	})
}

// APIRequests exposes the counter for evaluation API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for evaluation API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Submissions counts submission attempts by outcome (recorded, duplicate, rejected, error).
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

func SessionsActivated() prometheus.Counter {
	RegisterMetrics()
	return sessionsActivated
}

// AnalyticsCacheLookups counts analytics cache hits and misses.
func AnalyticsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return analyticsCacheLookups
}
