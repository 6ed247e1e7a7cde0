// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"fmt"
	"time"
)

// ensureContext creates a context with 30-second timeout if none provided
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// RecordCounts is the row count of each metric table.
type RecordCounts struct {
	DomainSummaries  int64 `json:"domain_summaries"`
	DomainErrors     int64 `json:"domain_errors"`
	CountrySummaries int64 `json:"country_summaries"`
}

// GetRecordCounts returns the count of records in the metric tables
func (db *DB) GetRecordCounts(ctx context.Context) (*RecordCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var counts RecordCounts
	err := db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM domain_summaries),
		(SELECT COUNT(*) FROM domain_errors),
		(SELECT COUNT(*) FROM country_summaries)`).
		Scan(&counts.DomainSummaries, &counts.DomainErrors, &counts.CountrySummaries)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	return &counts, nil
}
