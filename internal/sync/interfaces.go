// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"context"

	"github.com/tomtom215/gscstats/internal/models"
)

// MetricsProvider fetches one day of raw metrics for one domain.
//
// FetchPrimary returns (nil, nil) when the provider has no row for the date.
// FetchDimensioned returns an empty slice for a day without traffic.
// Implementations apply their own per-call timeout.
type MetricsProvider interface {
	FetchPrimary(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error)
	FetchDimensioned(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error)
}

// Store is the subset of the time-series store the sync engine writes to.
// Implemented by *database.DB.
type Store interface {
	UpsertDailyMetrics(ctx context.Context, dm *models.DailyMetrics) error
	UpsertCountryMetrics(ctx context.Context, entity string, date models.Date, records []models.DimensionedMetricRecord) error
	LastMetricDate(ctx context.Context, entity string) (*models.Date, error)
	LastCountryDate(ctx context.Context, entity string) (*models.Date, error)
}

// Invalidator removes cached responses matching a glob pattern.
// Implemented by *cache.Tiered.
type Invalidator interface {
	Invalidate(ctx context.Context, pattern string) bool
}

// Notifier is told about every finished run. Errors are logged by the caller
// and never change the run outcome.
type Notifier interface {
	NotifySyncFinished(ctx context.Context, progress models.SyncProgress, report models.SyncReport) error
}

// FailureLedger remembers the earliest failed date per (kind, entity) across
// runs so the resolver restarts from it.
type FailureLedger interface {
	EarliestFailure(kind models.SyncKind, entity string) (*models.Date, error)
	RecordFailure(kind models.SyncKind, entity string, date models.Date) error
	ClearFailures(kind models.SyncKind, entity string) error
}

// ProgressStore persists the last progress snapshot.
type ProgressStore interface {
	SaveProgress(p models.SyncProgress) error
	LoadProgress() (*models.SyncProgress, error)
}
