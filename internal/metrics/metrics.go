package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OptimizerRuns tracks optimization requests by outcome
	OptimizerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skylift_optimizer_runs_total",
		Help: "The total number of optimization runs",
	}, []string{"outcome"})

	// ProvisionAttempts tracks provisioning attempts by provider and outcome
	ProvisionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skylift_provision_attempts_total",
		Help: "The total number of provisioning attempts",
	}, []string{"provider", "outcome"})

	// ProvisionDuration tracks how long provisioning attempts take
	ProvisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skylift_provision_duration_seconds",
		Help:    "Duration of provisioning attempts in seconds",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"provider"})

	// ActiveSessions tracks active local cluster sessions
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skylift_active_sessions",
		Help: "The number of active local cluster sessions",
	})

	// InstancesTerminated tracks terminated instances by provider
	InstancesTerminated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skylift_instances_terminated_total",
		Help: "The total number of instances terminated",
	}, []string{"provider"})

	// EventStreamClients tracks connected provisioning event stream clients
	EventStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skylift_event_stream_clients",
		Help: "The number of connected provisioning event stream clients",
	})

	// HTTPRequestDuration tracks HTTP request durations
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skylift_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})
)
