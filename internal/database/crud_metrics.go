// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
)

const summaryColumns = `domain, date, traffic_clicks, impressions, ctr, avg_position, pages_indexed, pages_not_indexed`

// UpsertDailyMetrics writes one primary record and all of its error counts in a
// single transaction. Re-running with the same input leaves the store unchanged
// apart from updated_at.
func (db *DB) UpsertDailyMetrics(ctx context.Context, dm *models.DailyMetrics) error {
	if dm == nil {
		return errors.New("daily metrics cannot be nil")
	}
	rec := dm.Record
	if rec.EntityID == "" || rec.Date.IsZero() {
		return fmt.Errorf("%w: record requires domain and date", ErrStorage)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	defer db.rows.lock(tableDomainSummaries, rec.EntityID, rec.Date)()

	// Deterministic error-kind order keeps row locks in a stable sequence
	errorRows := dm.ErrorCounts()
	sort.Slice(errorRows, func(i, j int) bool { return errorRows[i].Kind < errorRows[j].Kind })

	return withConflictRetry(ctx, func(ctx context.Context) error {
		return db.upsertDailyMetricsTx(ctx, &rec, errorRows)
	})
}

func (db *DB) upsertDailyMetricsTx(ctx context.Context, rec *models.MetricRecord, errorRows []models.ErrorCount) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO domain_summaries (`+summaryColumns+`, updated_at)
		VALUES (?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, date) DO UPDATE SET
			traffic_clicks = EXCLUDED.traffic_clicks,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			avg_position = EXCLUDED.avg_position,
			pages_indexed = EXCLUDED.pages_indexed,
			pages_not_indexed = EXCLUDED.pages_not_indexed,
			updated_at = EXCLUDED.updated_at`,
		rec.EntityID, rec.Date.Time(), rec.Clicks, rec.Impressions, rec.CTR, rec.AvgPosition,
		rec.IndexedPages, rec.NotIndexedPages, now)
	if err != nil {
		return fmt.Errorf("failed to upsert domain summary: %w", err)
	}

	for _, row := range errorRows {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO domain_errors (domain, date, error_type, count, updated_at)
			VALUES (?, CAST(? AS DATE), ?, ?, ?)
			ON CONFLICT (domain, date, error_type) DO UPDATE SET
				count = EXCLUDED.count,
				updated_at = EXCLUDED.updated_at`,
			row.EntityID, row.Date.Time(), row.Kind, row.Count, now)
		if err != nil {
			return fmt.Errorf("failed to upsert error count %s: %w", row.Kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanSummary(scanner interface{ Scan(...any) error }) (*models.MetricRecord, error) {
	var rec models.MetricRecord
	err := scanner.Scan(&rec.EntityID, &rec.Date, &rec.Clicks, &rec.Impressions,
		&rec.CTR, &rec.AvgPosition, &rec.IndexedPages, &rec.NotIndexedPages)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (db *DB) querySummaries(ctx context.Context, query string, args ...any) ([]models.MetricRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer closeWithLog(rows, "summary rows")

	out := []models.MetricRecord{}
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return out, nil
}

// GetSummaryByDate returns every entity's primary record for one date, ordered by domain.
func (db *DB) GetSummaryByDate(ctx context.Context, date models.Date) ([]models.MetricRecord, error) {
	return db.querySummaries(ctx, `SELECT `+summaryColumns+` FROM domain_summaries
		WHERE date = CAST(? AS DATE) ORDER BY domain`, date.Time())
}

// GetDomainSummary returns one entity's primary record for one date, or nil when absent.
func (db *DB) GetDomainSummary(ctx context.Context, entity string, date models.Date) (*models.MetricRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM domain_summaries
		WHERE domain = ? AND date = CAST(? AS DATE)`, entity, date.Time())
	rec, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain summary: %w", err)
	}
	return rec, nil
}

// GetDomainErrors returns the error counts of one entity and date, ordered by kind.
func (db *DB) GetDomainErrors(ctx context.Context, entity string, date models.Date) ([]models.ErrorCount, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT domain, date, error_type, count FROM domain_errors
		WHERE domain = ? AND date = CAST(? AS DATE) ORDER BY error_type`, entity, date.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query domain errors: %w", err)
	}
	defer closeWithLog(rows, "error rows")

	out := []models.ErrorCount{}
	for rows.Next() {
		var ec models.ErrorCount
		if err := rows.Scan(&ec.EntityID, &ec.Date, &ec.Kind, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan error count: %w", err)
		}
		out = append(out, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domain errors: %w", err)
	}
	return out, nil
}

// GetDomainRange returns one entity's primary records with start <= date <= end, ordered by date.
func (db *DB) GetDomainRange(ctx context.Context, entity string, r models.DateRange) ([]models.MetricRecord, error) {
	return db.querySummaries(ctx, `SELECT `+summaryColumns+` FROM domain_summaries
		WHERE domain = ? AND date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)
		ORDER BY date`, entity, r.Start.Time(), r.End.Time())
}

// LastMetricDate returns the latest persisted primary date for entity, or nil when none.
func (db *DB) LastMetricDate(ctx context.Context, entity string) (*models.Date, error) {
	return db.maxDate(ctx, `SELECT MAX(date) FROM domain_summaries WHERE domain = ?`, entity)
}

func (db *DB) maxDate(ctx context.Context, query, entity string) (*models.Date, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var d models.Date
	if err := db.conn.QueryRowContext(ctx, query, entity).Scan(&d); err != nil {
		return nil, fmt.Errorf("failed to read last date for %s: %w", entity, err)
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

// AllLastDates returns the primary and country high-water-marks of each entity
// in the order given.
func (db *DB) AllLastDates(ctx context.Context, entities []string) ([]models.LastDates, error) {
	out := make([]models.LastDates, 0, len(entities))
	for _, entity := range entities {
		primary, err := db.LastMetricDate(ctx, entity)
		if err != nil {
			return nil, err
		}
		country, err := db.LastCountryDate(ctx, entity)
		if err != nil {
			return nil, err
		}
		out = append(out, models.LastDates{EntityID: entity, Primary: primary, Dimensioned: country})
	}
	return out, nil
}
