// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package supervisor runs the long-lived GSCStats services under a suture v4
supervisor tree.

	RootSupervisor ("gscstats")
	├── "storage-layer"
	│   └── ProgressGCService (when progress is persisted to disk)
	├── "sync-layer"
	│   └── SyncService (when sync is enabled)
	└── "api-layer"
	    └── HTTPServerService

A crashed service is restarted by its layer with suture's failure decay and
backoff. Supervisor events are logged through sutureslog.

Usage:

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

The service wrappers live in the services subpackage.
*/
package supervisor
