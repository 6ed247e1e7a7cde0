// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package gsc is the Google Search Console metrics provider.
//
// Client issues one Search Analytics query per (domain, date): dimensions
// [date] for the daily summary and [date, country] for the per-country rows.
// Calls are rate limited, bounded by a per-call timeout and wrapped in
// ErrProviderUnavailable on failure. CircuitBreakerClient adds a gobreaker
// circuit in front of any Provider.
package gsc
