package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comunitree_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// WorkflowOperations counts community, membership, friendship and event mutations by outcome
	// (success|failure).
	WorkflowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comunitree_workflow_operations_total",
			Help: "Total number of workflow operations",
		},
		[]string{"operation", "result"},
	)

	// InFlightRequests tracks HTTP requests currently being served.
	InFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "comunitree_http_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// APILatency measures HTTP request latencies. status is the response class (2xx, 4xx, ...).
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comunitree_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RecordOperation increments the workflow counter for operation using the outcome of err.
func RecordOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	WorkflowOperations.WithLabelValues(operation, result).Inc()
}
