// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package middleware provides HTTP middleware shared by the API router.
//
//   - RequestID: X-Request-ID propagation plus request and correlation IDs in
//     the logging context
//   - PrometheusMetrics: api_requests_total, api_request_duration_seconds and
//     api_active_requests, labeled by chi route pattern
//
// Both are http.HandlerFunc decorators. The api package adapts them to chi's
// func(http.Handler) http.Handler form.
package middleware
