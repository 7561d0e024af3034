// Package metrics exposes Prometheus instrumentation for the marketplace.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobboard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_application_transitions_total",
		Help: "Application status transitions by source and target status",
	}, []string{"from", "to"})

	authzDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_authz_denials_total",
		Help: "Authorization denials by operation",
	}, []string{"operation"})

	recommendationsServed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobboard_recommendations_returned",
		Help:    "Number of jobs returned per recommendation request",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})

	collaboratorTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_collaborator_timeouts_total",
		Help: "Collaborator calls that hit their deadline",
	}, []string{"collaborator"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransition counts an application status change.
func ObserveTransition(from, to string) {
	statusTransitions.WithLabelValues(from, to).Inc()
}

func ObserveDenial(operation string) {
	authzDenials.WithLabelValues(operation).Inc()
}

func ObserveRecommendations(count int) {
	recommendationsServed.Observe(float64(count))
}

func ObserveTimeout(collaborator string) {
	collaboratorTimeouts.WithLabelValues(collaborator).Inc()
}
