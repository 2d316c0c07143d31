// RoadBook Tracker - Driving Session Sync and Analytics
// Copyright 2026 Ajkll
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Ajkll/RoadBook-sub002

// Package metrics provides Prometheus instrumentation for roadbookd:
// refresh cycle outcomes, backend call latency, circuit breaker state,
// store publishes, API latency, and WebSocket connections.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh cycle metrics
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome (ok, cancelled, exhausted, auth_expired)",
		},
		[]string{"outcome"},
	)

	RefreshAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_attempts_total",
			Help: "Total number of individual fetch attempts by result (success, failure)",
		},
		[]string{"result"},
	)

	RefreshCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_cycle_duration_seconds",
			Help:    "Duration of complete refresh cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Backend client metrics
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Duration of RoadBook backend requests in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status_code"},
	)

	BackendRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_request_errors_total",
			Help: "Total number of failed RoadBook backend requests by error kind",
		},
		[]string{"endpoint", "kind"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by result",
		},
		[]string{"name", "result"},
	)

	// Session store metrics
	StorePublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_store_publishes_total",
			Help: "Total number of snapshots published to the session store",
		},
	)

	StoreRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_store_records",
			Help: "Number of session records in the current snapshot",
		},
	)

	StoreSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_store_subscribers",
			Help: "Current number of session store subscribers",
		},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages broadcast to clients",
		},
	)

	// Goal store metrics
	GoalStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goal_store_operations_total",
			Help: "Total number of goal store operations by type and result",
		},
		[]string{"operation", "result"},
	)
)

// RecordAPIRequest records a completed API request with its duration.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordBackendRequest records a completed backend request with its duration.
func RecordBackendRequest(endpoint string, statusCode int, duration time.Duration) {
	BackendRequestDuration.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Observe(duration.Seconds())
}
