// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package services

import (
	"context"
	"time"

	"github.com/tomtom215/gscstats/internal/logging"
)

// Defaults for ProgressGCService.
const (
	DefaultGCInterval = 30 * time.Minute
	DefaultGCRatio    = 0.5
)

// GarbageCollector reclaims space in an on-disk key-value store.
// *sync.BadgerStore satisfies it.
type GarbageCollector interface {
	RunGC(ratio float64) error
}

// ProgressGCService periodically compacts the badger progress store. Writes
// there are small and frequent, so the value log grows without it.
type ProgressGCService struct {
	store    GarbageCollector
	interval time.Duration
	ratio    float64
	name     string
}

// NewProgressGCService creates the service. Non-positive arguments take the
// defaults.
func NewProgressGCService(store GarbageCollector, interval time.Duration, ratio float64) *ProgressGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultGCRatio
	}
	return &ProgressGCService{
		store:    store,
		interval: interval,
		ratio:    ratio,
		name:     "progress-gc",
	}
}

// Serve runs GC on every tick until ctx is canceled. A failed run is logged
// and retried on the next tick.
func (s *ProgressGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.store.RunGC(s.ratio); err != nil {
				logging.Warn().Err(err).Msg("Progress store GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Progress store GC finished")
		}
	}
}

// String implements fmt.Stringer for supervisor events.
func (s *ProgressGCService) String() string {
	return s.name
}
