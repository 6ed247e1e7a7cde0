// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package metrics defines the Prometheus collectors for the service.
//
// All collectors are registered on the default registry through promauto and
// exposed by the API at /metrics.
//
// # Groups
//
//   - duckdb_*: store query latency and errors
//   - api_*: request count, latency, in-flight requests, rate-limit rejections
//   - sync_*: phase duration, job outcomes, failure causes, last success
//   - gsc_*: Search Console call latency and results
//   - cache_*: hits per tier, misses, invalidated keys, remote tier errors
//   - circuit_breaker_*: provider breaker state and transitions
//   - notifications_sent_total: run summary delivery
//
// Prefer the Record* helpers over touching the collectors directly so label
// values stay consistent.
package metrics
