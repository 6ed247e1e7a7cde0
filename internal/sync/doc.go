// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package sync implements the incremental sync engine.

A run has two phases, primary (daily domain summaries with error counts)
followed by dimensioned (per-country rows). For each phase the engine:

 1. Resolves the missing date range of every domain from the store's
    high-water-mark, the configured epoch and the provider lag
    (Resolver, EffectiveHighWaterMark).
 2. Expands the ranges into (domain, date) work items and runs them under
    one worker bound shared by every run (Scheduler). A failing item never
    cancels its siblings.
 3. Invalidates the dependent cache entries when anything was persisted.

At most one run is active per process. ProgressTracker owns that slot and
the status snapshot served to readers:

	snapshot, err := manager.TriggerSync()
	if errors.Is(err, sync.ErrSyncInProgress) {
	    // snapshot describes the run already in flight
	}

Failed dates are remembered in a FailureLedger (BadgerStore in production)
so the next run restarts from the earliest failure even when later dates of
the same domain were persisted.
*/
package sync
