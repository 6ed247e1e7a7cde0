// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package database is the DuckDB time-series store for per-domain daily
// search metrics.
//
// # Tables
//
//   - domain_summaries: one row per (domain, date)
//   - domain_errors: one row per (domain, date, error_type), sparse
//   - country_summaries: one row per (domain, date, country)
//
// # Writes
//
// UpsertDailyMetrics and UpsertCountryMetrics are idempotent
// INSERT ... ON CONFLICT DO UPDATE statements. A summary and its error counts
// commit in one transaction, as do all country rows of one (domain, date). Any
// failure rolls the transaction back and is returned wrapped in ErrStorage.
//
// Writes to the same (table, domain, date) are serialized through an
// in-process key lock. DuckDB transaction conflicts are retried up to three
// times with exponential backoff.
//
// # Reads
//
// Range reads are ordered by date. Single-row getters return (nil, nil) when
// the row does not exist. LastMetricDate and LastCountryDate return the
// per-domain high-water-mark the sync resolver starts from.
//
// # Usage
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.UpsertDailyMetrics(ctx, models.NewDailyMetrics(rec))
package database
