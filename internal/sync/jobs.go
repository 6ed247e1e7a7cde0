// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

// Job stages
const (
	StageFetch = "fetch"
	StageMerge = "merge"
)

// JobError tags a job failure with the stage that produced it.
type JobError struct {
	Stage string
	Err   error
}

func (e *JobError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a job failure to its metrics label.
func ClassifyError(err error) metrics.ErrorClass {
	var je *JobError
	if !errors.As(err, &je) {
		return metrics.ClassifyTimeout(err, metrics.ErrorClassOther)
	}
	if je.Stage == StageMerge {
		return metrics.ErrorClassStorage
	}
	return metrics.ClassifyTimeout(err, metrics.ErrorClassProvider)
}

// PrimaryJob fetches a domain's daily summary and persists it with its error
// counts. A missing or all-zero summary is a skip.
func PrimaryJob(provider MetricsProvider, store Store) JobFunc {
	return func(ctx context.Context, item models.WorkItem) error {
		dm, err := provider.FetchPrimary(ctx, item.EntityID, item.Date)
		if err != nil {
			return &JobError{Stage: StageFetch, Err: err}
		}
		if dm == nil || dm.Record.IsAllZero() {
			return ErrNoData
		}

		// The provider keys the record; make sure it matches the work item.
		dm.Record.EntityID = item.EntityID
		dm.Record.Date = item.Date
		if dm.Errors == nil {
			dm.Errors = map[string]int64{}
		}

		if err := store.UpsertDailyMetrics(ctx, dm); err != nil {
			return &JobError{Stage: StageMerge, Err: err}
		}
		return nil
	}
}

// DimensionedJob fetches a domain's per-country rows for one date and
// persists them together. An empty result is a skip.
func DimensionedJob(provider MetricsProvider, store Store) JobFunc {
	return func(ctx context.Context, item models.WorkItem) error {
		rows, err := provider.FetchDimensioned(ctx, item.EntityID, item.Date)
		if err != nil {
			return &JobError{Stage: StageFetch, Err: err}
		}
		if len(rows) == 0 {
			return ErrNoData
		}

		if err := store.UpsertCountryMetrics(ctx, item.EntityID, item.Date, rows); err != nil {
			return &JobError{Stage: StageMerge, Err: err}
		}
		return nil
	}
}

// JobFor returns the job of the given kind.
func JobFor(kind models.SyncKind, provider MetricsProvider, store Store) (JobFunc, error) {
	switch kind {
	case models.KindPrimary:
		return PrimaryJob(provider, store), nil
	case models.KindDimensioned:
		return DimensionedJob(provider, store), nil
	default:
		return nil, fmt.Errorf("unknown sync kind %q", kind)
	}
}

// lastDateFunc returns the store's high-water-mark lookup for kind.
func lastDateFunc(kind models.SyncKind, store Store) func(context.Context, string) (*models.Date, error) {
	if kind == models.KindDimensioned {
		return store.LastCountryDate
	}
	return store.LastMetricDate
}
