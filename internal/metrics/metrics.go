// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
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
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync phases in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"kind"},
	)

	SyncJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_jobs_total",
			Help: "Total number of (domain, date) sync jobs by outcome",
		},
		[]string{"kind", "outcome"}, // persisted, skipped, failed
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync job failures by cause",
		},
		[]string{"kind", "error_type"}, // provider, storage, timeout, other
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last sync run that finished without a fatal error",
		},
	)

	SyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_running",
			Help: "1 while a sync run is active",
		},
	)

	SyncWorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_workers_busy",
			Help: "Number of fetch workers currently executing a job",
		},
	)

	// Provider Metrics
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gsc_request_duration_seconds",
			Help:    "Duration of Search Console API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gsc_requests_total",
			Help: "Total number of Search Console API calls by result",
		},
		[]string{"operation", "result"}, // success, error
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"tier"}, // remote, local
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of response cache misses that required a compute",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_local_entries",
			Help: "Current number of entries in the local cache tier",
		},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of keys removed by pattern invalidation",
		},
		[]string{"tier"},
	)

	CacheRemoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_remote_errors_total",
			Help: "Total number of failed remote cache operations",
		},
		[]string{"operation"}, // get, set, invalidate
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Notification Metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of sync notifications by channel and result",
		},
		[]string{"channel", "result"},
	)
)

// ErrorClass labels a sync failure cause. Callers pass a classifier so this
// package stays free of domain imports.
type ErrorClass string

const (
	ErrorClassProvider ErrorClass = "provider"
	ErrorClassStorage  ErrorClass = "storage"
	ErrorClassTimeout  ErrorClass = "timeout"
	ErrorClassOther    ErrorClass = "other"
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSyncJob records the outcome of one (domain, date) job
func RecordSyncJob(kind, outcome string) {
	SyncJobs.WithLabelValues(kind, outcome).Inc()
}

// RecordSyncError records a job failure under its cause
func RecordSyncError(kind string, class ErrorClass) {
	SyncErrors.WithLabelValues(kind, string(class)).Inc()
}

// RecordSyncPhase records how long one phase took
func RecordSyncPhase(kind string, duration time.Duration) {
	SyncDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSyncRun records the end of a whole run. A nil err stamps the
// last-success gauge.
func RecordSyncRun(err error) {
	SyncRunning.Set(0)
	if err == nil {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordProviderCall records one Search Console API call
func RecordProviderCall(operation string, duration time.Duration, err error) {
	ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	ProviderRequests.WithLabelValues(operation, result).Inc()
}

// RecordCacheHit records a hit on the named tier
func RecordCacheHit(tier string) {
	CacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a miss on both tiers
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordCacheInvalidation records the number of keys a pattern removed from a tier
func RecordCacheInvalidation(tier string, removed int) {
	CacheInvalidations.WithLabelValues(tier).Add(float64(removed))
}

// RecordCacheRemoteError records a failed remote tier operation
func RecordCacheRemoteError(operation string) {
	CacheRemoteErrors.WithLabelValues(operation).Inc()
}

// RecordNotification records a notification attempt
func RecordNotification(channel string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	NotificationsSent.WithLabelValues(channel, result).Inc()
}

// ClassifyTimeout returns ErrorClassTimeout for deadline errors and fallback otherwise.
func ClassifyTimeout(err error, fallback ErrorClass) ErrorClass {
	if err == nil {
		return fallback
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassTimeout
	}
	return fallback
}
