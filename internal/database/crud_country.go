// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
)

const countryColumns = `domain, date, country, traffic_clicks, impressions, ctr, avg_position`

// UpsertCountryMetrics writes all country rows of one entity and date in a
// single transaction. A row with an empty dimension is stored as "N/A".
func (db *DB) UpsertCountryMetrics(ctx context.Context, entity string, date models.Date, records []models.DimensionedMetricRecord) error {
	if entity == "" || date.IsZero() {
		return fmt.Errorf("%w: country rows require domain and date", ErrStorage)
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]models.DimensionedMetricRecord, len(records))
	copy(rows, records)
	for i := range rows {
		rows[i].EntityID = entity
		rows[i].Date = date
		if rows[i].Dimension == "" {
			rows[i].Dimension = models.UnknownDimension
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Dimension < rows[j].Dimension })

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	defer db.rows.lock(tableCountrySummaries, entity, date)()

	return withConflictRetry(ctx, func(ctx context.Context) error {
		return db.upsertCountryTx(ctx, rows)
	})
}

func (db *DB) upsertCountryTx(ctx context.Context, rows []models.DimensionedMetricRecord) (err error) {
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO country_summaries (`+countryColumns+`, updated_at)
		VALUES (?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?)
		ON CONFLICT (domain, date, country) DO UPDATE SET
			traffic_clicks = EXCLUDED.traffic_clicks,
			impressions = EXCLUDED.impressions,
			ctr = EXCLUDED.ctr,
			avg_position = EXCLUDED.avg_position,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare country upsert: %w", err)
	}
	defer closeWithLog(stmt, "country statement")

	now := time.Now().UTC()
	for i := range rows {
		r := &rows[i]
		if _, err = stmt.ExecContext(ctx, r.EntityID, r.Date.Time(), r.Dimension,
			r.Clicks, r.Impressions, r.CTR, r.AvgPosition, now); err != nil {
			return fmt.Errorf("failed to upsert country %s: %w", r.Dimension, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) queryCountries(ctx context.Context, query string, args ...any) ([]models.DimensionedMetricRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query country summaries: %w", err)
	}
	defer closeWithLog(rows, "country rows")

	out := []models.DimensionedMetricRecord{}
	for rows.Next() {
		var r models.DimensionedMetricRecord
		if err := rows.Scan(&r.EntityID, &r.Date, &r.Dimension, &r.Clicks, &r.Impressions, &r.CTR, &r.AvgPosition); err != nil {
			return nil, fmt.Errorf("failed to scan country summary: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country summaries: %w", err)
	}
	return out, nil
}

// GetCountrySummary returns every country row of every entity for one date.
func (db *DB) GetCountrySummary(ctx context.Context, date models.Date) ([]models.DimensionedMetricRecord, error) {
	return db.queryCountries(ctx, `SELECT `+countryColumns+` FROM country_summaries
		WHERE date = CAST(? AS DATE) ORDER BY domain, country`, date.Time())
}

// GetCountrySummaryByDate returns every entity's row for one country and date.
func (db *DB) GetCountrySummaryByDate(ctx context.Context, country string, date models.Date) ([]models.DimensionedMetricRecord, error) {
	return db.queryCountries(ctx, `SELECT `+countryColumns+` FROM country_summaries
		WHERE country = ? AND date = CAST(? AS DATE) ORDER BY domain`, country, date.Time())
}

// GetCountryRange returns the rows of one country across entities with
// start <= date <= end, ordered by date then domain.
func (db *DB) GetCountryRange(ctx context.Context, country string, r models.DateRange) ([]models.DimensionedMetricRecord, error) {
	return db.queryCountries(ctx, `SELECT `+countryColumns+` FROM country_summaries
		WHERE country = ? AND date BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)
		ORDER BY date, domain`, country, r.Start.Time(), r.End.Time())
}

// LastCountryDate returns the latest persisted country date for entity, or nil when none.
func (db *DB) LastCountryDate(ctx context.Context, entity string) (*models.Date, error) {
	return db.maxDate(ctx, `SELECT MAX(date) FROM country_summaries WHERE domain = ?`, entity)
}
