// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

// DefaultWorkers is the process-wide bound on concurrent fetch+merge jobs.
const DefaultWorkers = 20

// Outcome is the result of one job.
type Outcome int

const (
	OutcomePersisted Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePersisted:
		return "persisted"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// JobFunc fetches and merges one work item. Returning ErrNoData (or an error
// wrapping it) counts as a skip; any other error is a failure.
type JobFunc func(ctx context.Context, item models.WorkItem) error

// Observer is told about every job as it starts and finishes. Calls arrive
// concurrently from worker goroutines.
type Observer interface {
	JobStarted(item models.WorkItem)
	JobFinished(item models.WorkItem, outcome Outcome, err error)
}

// Scheduler runs work items under a worker bound shared by every Run call.
type Scheduler struct {
	sem        *semaphore.Weighted
	workers    int
	jobTimeout time.Duration
}

// NewScheduler creates a scheduler with the given worker bound and per-job
// timeout. A non-positive workers uses DefaultWorkers; a non-positive timeout
// disables the per-job deadline.
func NewScheduler(workers int, jobTimeout time.Duration) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Scheduler{
		sem:        semaphore.NewWeighted(int64(workers)),
		workers:    workers,
		jobTimeout: jobTimeout,
	}
}

// Workers returns the concurrency bound.
func (s *Scheduler) Workers() int {
	return s.workers
}

// Run executes every item and returns once all have finished. A failing job
// never cancels its siblings. Items not yet started when ctx is canceled are
// reported as failures.
func (s *Scheduler) Run(ctx context.Context, kind models.SyncKind, items []models.WorkItem, job JobFunc, obs Observer) models.SyncReport {
	report := models.SyncReport{Kind: kind, Errors: []string{}}
	var mu sync.Mutex

	record := func(item models.WorkItem, outcome Outcome, err error) {
		mu.Lock()
		report.Attempted++
		switch outcome {
		case OutcomePersisted:
			report.Persisted++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
			report.Errors = append(report.Errors, FormatJobError(item, err))
		}
		mu.Unlock()

		metrics.RecordSyncJob(string(kind), outcome.String())
		if obs != nil {
			obs.JobFinished(item, outcome, err)
		}
	}

	// Plain Group: no derived context, so one failure cannot cancel the rest.
	var g errgroup.Group

	for _, item := range items {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			record(item, OutcomeFailed, fmt.Errorf("not started: %w", err))
			continue
		}

		g.Go(func() error {
			defer s.sem.Release(1)
			metrics.SyncWorkersBusy.Inc()
			defer metrics.SyncWorkersBusy.Dec()

			if obs != nil {
				obs.JobStarted(item)
			}
			outcome, err := s.runJob(ctx, item, job)
			if outcome == OutcomeFailed {
				logging.Ctx(ctx).Warn().
					Str("domain", item.EntityID).
					Str("date", item.Date.String()).
					Err(err).
					Msg("Sync job failed")
			}
			record(item, outcome, err)
			return nil
		})
	}

	_ = g.Wait()
	return report
}

// runJob applies the per-job timeout and recovers a panicking job into a failure.
func (s *Scheduler) runJob(ctx context.Context, item models.WorkItem, job JobFunc) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("job panicked: %v", r)
		}
	}()

	jobCtx := ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	err = job(jobCtx, item)
	switch {
	case err == nil:
		return OutcomePersisted, nil
	case errors.Is(err, ErrNoData):
		return OutcomeSkipped, nil
	default:
		return OutcomeFailed, err
	}
}

// FormatJobError renders a failure the way it appears in progress and reports.
func FormatJobError(item models.WorkItem, err error) string {
	return fmt.Sprintf("%s on %s: %v", item.EntityID, item.Date, err)
}

// WorkItems expands per-domain ranges into items, domain by domain in the
// order given, each range in date order.
func WorkItems(entities []string, ranges map[string]*models.DateRange) []models.WorkItem {
	var items []models.WorkItem
	for _, entity := range entities {
		r := ranges[entity]
		if r == nil {
			continue
		}
		for _, d := range r.Days() {
			items = append(items, models.WorkItem{EntityID: entity, Date: d})
		}
	}
	return items
}
