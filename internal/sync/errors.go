// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import "errors"

var (
	// ErrSyncInProgress is returned when a run is requested while another is active.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNoData marks a job whose provider result carried nothing worth
	// persisting. It is counted as a skip, never as a failure.
	ErrNoData = errors.New("no data for date")

	// ErrNotRunning is returned by Stop when the scheduler loop was never started.
	ErrNotRunning = errors.New("sync manager is not running")
)
