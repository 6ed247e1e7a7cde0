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

// Table names
const (
	tableDomainSummaries  = "domain_summaries"
	tableDomainErrors     = "domain_errors"
	tableCountrySummaries = "country_summaries"
)

// getTableCreationQueries returns the DDL for the three metric tables.
// Primary keys enforce one row per (domain, date[, kind|country]) and back the
// ON CONFLICT targets of the upserts.
//
// updated_at is written explicitly by every upsert. A TIMESTAMP DEFAULT
// CURRENT_TIMESTAMP column would need the ICU extension during WAL replay.
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS domain_summaries (
			domain VARCHAR NOT NULL,
			date DATE NOT NULL,
			traffic_clicks BIGINT NOT NULL DEFAULT 0 CHECK (traffic_clicks >= 0),
			impressions BIGINT NOT NULL DEFAULT 0 CHECK (impressions >= 0),
			ctr DOUBLE NOT NULL DEFAULT 0 CHECK (ctr >= 0 AND ctr <= 1),
			avg_position DOUBLE NOT NULL DEFAULT 0 CHECK (avg_position >= 0),
			pages_indexed BIGINT NOT NULL DEFAULT 0 CHECK (pages_indexed >= 0),
			pages_not_indexed BIGINT NOT NULL DEFAULT 0 CHECK (pages_not_indexed >= 0),
			updated_at TIMESTAMP,
			PRIMARY KEY (domain, date)
		)`,

		`CREATE TABLE IF NOT EXISTS domain_errors (
			domain VARCHAR NOT NULL,
			date DATE NOT NULL,
			error_type VARCHAR NOT NULL,
			count BIGINT NOT NULL DEFAULT 0 CHECK (count >= 0),
			updated_at TIMESTAMP,
			PRIMARY KEY (domain, date, error_type)
		)`,

		`CREATE TABLE IF NOT EXISTS country_summaries (
			domain VARCHAR NOT NULL,
			date DATE NOT NULL,
			country VARCHAR NOT NULL,
			traffic_clicks BIGINT NOT NULL DEFAULT 0 CHECK (traffic_clicks >= 0),
			impressions BIGINT NOT NULL DEFAULT 0 CHECK (impressions >= 0),
			ctr DOUBLE NOT NULL DEFAULT 0 CHECK (ctr >= 0 AND ctr <= 1),
			avg_position DOUBLE NOT NULL DEFAULT 0 CHECK (avg_position >= 0),
			updated_at TIMESTAMP,
			PRIMARY KEY (domain, date, country)
		)`,
	}
}

// createTables creates all tables if they don't exist
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}
