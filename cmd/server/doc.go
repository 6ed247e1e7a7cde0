// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package main is the GSCStats server.

GSCStats mirrors daily Google Search Console metrics for a set of domains into
DuckDB, keeps them current with scheduled incremental syncs, and serves them
over a cached JSON API.

# Application Architecture

	RootSupervisor ("gscstats")
	├── "storage-layer"
	│   └── progress-gc (badger value log GC, when PROGRESS_BADGER_PATH is set)
	├── "sync-layer"
	│   └── sync-manager (scheduled runs, when SYNC_ENABLED=true)
	└── "api-layer"
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, optional config file, environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Database: DuckDB time-series store
 4. Progress: badger snapshot store and failure ledger
 5. Provider: Search Console client behind a rate limiter and circuit breaker
 6. Cache: local tier plus optional Redis tier
 7. Sync Manager: resolver, fetch scheduler, progress tracker, notifier
 8. HTTP Server: Chi router with auth, rate limiting and Prometheus metrics
 9. Supervisor Tree: suture v4

# Configuration

Common environment variables:

	GSC_DOMAINS             comma-separated domains to sync
	GSC_CLIENT_SECRET_FILE  OAuth client JSON
	GSC_TOKEN_FILE          stored OAuth token (create with backfill -authorize)
	DUCKDB_PATH             database file
	SYNC_SCHEDULE_HOURS     UTC hours for scheduled runs, e.g. 0,12
	CACHE_REMOTE_ENABLED    use Redis at REDIS_ADDR as the shared tier
	AUTH_MODE               basic (default) or none
	TELEGRAM_ENABLED        send run summaries to TELEGRAM_CHAT_ID

A config file can be passed with CONFIG_PATH.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
10s, the sync manager cancels and waits for an in-flight run, then the
database and stores are closed.
*/
package main
