// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ping Metrics
	PingRoundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ping_round_duration_seconds",
			Help:    "Duration of a full ping sweep over all nodes",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	PingResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ping_results_total",
			Help: "Total number of node pings by outcome",
		},
		[]string{"result"}, // "reachable", "unreachable", "error"
	)

	NodesReachable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodes_reachable",
			Help: "Number of nodes that answered the last ping sweep",
		},
	)

	NodesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodes_total",
			Help: "Number of nodes in the registry",
		},
	)

	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"source"}, // "radiusdesk", "unifi"
	)

	SyncRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_processed_total",
			Help: "Total number of upstream rows processed during sync",
		},
		[]string{"source", "kind"}, // kind: "nodes", "metrics", "sessions", ...
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"source"},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync per source",
		},
		[]string{"source"},
	)

	// Alert Metrics
	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_transitions_total",
			Help: "Total number of alert lifecycle transitions",
		},
		[]string{"transition"}, // "new", "upgraded", "renamed", "resolved"
	)

	CheckRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "check_run_duration_seconds",
			Help:    "Duration of a full health check pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Metric Store Metrics
	MetricRowsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metric_rows_stored_total",
			Help: "Total number of metric rows written to the metric store",
		},
		[]string{"family"},
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_duration_seconds",
			Help:    "Duration of metric aggregation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"granularity"}, // "hourly", "daily", "monthly"
	)

	// API Metrics
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

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	DeviceReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_reports_total",
			Help: "Total number of device report submissions",
		},
		[]string{"result"}, // "accepted", "unknown_node", "throttled", "invalid"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published to the internal bus",
		},
		[]string{"topic"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordPingRound records the outcome of one ping sweep.
func RecordPingRound(duration time.Duration, reachable, total int) {
	PingRoundDuration.Observe(duration.Seconds())
	NodesReachable.Set(float64(reachable))
	NodesTotal.Set(float64(total))
}

// RecordPingResult counts a single node ping by outcome.
func RecordPingResult(result string) {
	PingResults.WithLabelValues(result).Inc()
}

// RecordSync records a sync run for one upstream source.
func RecordSync(source string, duration time.Duration, err error) {
	SyncDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		SyncErrors.WithLabelValues(source).Inc()
		return
	}
	SyncLastSuccess.WithLabelValues(source).Set(float64(time.Now().Unix()))
}

// RecordSyncRows counts upstream rows processed by kind.
func RecordSyncRows(source, kind string, n int) {
	if n > 0 {
		SyncRowsProcessed.WithLabelValues(source, kind).Add(float64(n))
	}
}

// RecordAlertTransition counts an alert lifecycle transition.
func RecordAlertTransition(transition string) {
	AlertTransitions.WithLabelValues(transition).Inc()
}

// RecordAggregation records an aggregation run.
func RecordAggregation(granularity string, duration time.Duration) {
	AggregationDuration.WithLabelValues(granularity).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetCircuitBreakerState exports a breaker state change.
// gobreaker orders states closed=0, half-open=1, open=2.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
