// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

/*
Package metrics provides Prometheus instrumentation for the backend itself.

Node-level metrics (cpu, rtt, data usage) live in the metric store and are
served through the API; this package instruments the backend's own behavior:

  - ping sweeps: round duration, per-node outcomes, reachable/total gauges
  - sync runs: duration, rows processed and errors per upstream source
  - alert lifecycle transitions and check run duration
  - metric store writes and aggregation runs
  - API request latency, throughput and in-flight count
  - WebSocket connections and event bus publishes
  - circuit breaker states for the upstream couplings

Metrics are exposed at /metrics in Prometheus text format via promhttp.

Example PromQL:

	# nodes currently unreachable
	nodes_total - nodes_reachable

	# API p95 latency
	histogram_quantile(0.95, rate(api_request_duration_seconds_bucket[5m]))

	# sync staleness per source
	time() - sync_last_success_timestamp

All recording functions are safe for concurrent use; labels are limited to
small fixed sets to keep cardinality down.
*/
package metrics
