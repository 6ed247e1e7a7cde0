// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package services adapts GSCStats components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error:

  - SyncService: sync.Manager Start/Stop. Start errors are returned so the
    supervisor restarts the manager with backoff.
  - HTTPServerService: http.Server ListenAndServe/Shutdown with a bounded
    drain on cancellation.
  - ProgressGCService: periodic badger value log GC for the progress store.

Every wrapper implements fmt.Stringer so supervisor events name it.
*/
package services
