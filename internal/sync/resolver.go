// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"time"

	"github.com/tomtom215/gscstats/internal/models"
)

// DefaultLagDays is how many days the provider needs before a date is final.
const DefaultLagDays = 2

// DefaultEpoch is where a never-synced domain starts.
var DefaultEpoch = models.NewDate(2024, time.January, 1)

// Resolver computes the missing date range of a domain. It holds no state
// beyond its configuration; the clock is injected so results are reproducible.
type Resolver struct {
	epoch models.Date
	lag   int
	now   func() time.Time
}

// NewResolver creates a resolver. A nil now uses time.Now.
func NewResolver(epoch models.Date, lagDays int, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &Resolver{epoch: epoch, lag: lagDays, now: now}
}

// Today returns the current UTC date.
func (r *Resolver) Today() models.Date {
	return models.DateOf(r.now())
}

// AvailableThrough is the last date whose provider data is considered final.
func (r *Resolver) AvailableThrough() models.Date {
	return r.Today().AddDays(-r.lag)
}

// Resolve returns [start, today-lag] where start is the epoch for a domain
// with no records and the day after lastPersisted otherwise. It returns nil
// when the domain is already up to date.
func (r *Resolver) Resolve(lastPersisted *models.Date) *models.DateRange {
	start := r.epoch
	if lastPersisted != nil && !lastPersisted.IsZero() {
		start = lastPersisted.AddDays(1)
	}

	end := r.AvailableThrough()
	if start.After(end) {
		return nil
	}
	return &models.DateRange{Start: start, End: end}
}

// EffectiveHighWaterMark folds a recorded failure into the persisted
// high-water-mark: min(lastPersisted, earliestFailure-1). Jobs finish out of
// order, so MAX(date) alone can run past a date that failed.
func EffectiveHighWaterMark(lastPersisted, earliestFailure *models.Date) *models.Date {
	if earliestFailure == nil || earliestFailure.IsZero() {
		return lastPersisted
	}
	beforeFailure := earliestFailure.AddDays(-1)
	if lastPersisted == nil || lastPersisted.IsZero() || beforeFailure.Before(*lastPersisted) {
		return &beforeFailure
	}
	return lastPersisted
}
