// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package models defines the data structures shared by the store, the sync
engine and the HTTP API.

Key Components:

  - Date, DateRange: calendar dates without time-of-day, JSON and SQL aware
  - MetricRecord: daily clicks, impressions, CTR and average position per domain
  - ErrorCount: sparse per-kind error totals for a domain and date
  - DailyMetrics: a MetricRecord plus its error map, the unit of a primary upsert
  - DimensionedMetricRecord: the same metrics broken down by country
  - SyncProgress, SyncReport, WorkItem: sync engine state and results

JSON field names match the public API (traffic_clicks, pages_indexed, ...),
so the types are serialized directly in responses and cache payloads.
*/
package models
