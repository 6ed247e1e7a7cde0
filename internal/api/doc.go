// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package api provides the HTTP API for reading synced Search Console metrics
and controlling sync runs.

Routing uses the Chi router with go-chi/cors and go-chi/httprate. Every read
endpoint is served through the tiered response cache, so repeated dashboard
queries hit Redis or the in-process tier instead of DuckDB.

Read Endpoints (Basic auth):

	GET /api/summary?target_date=YYYY-MM-DD
	GET /api/domain/{domain}/summary?target_date=
	GET /api/domain/{domain}/errors?target_date=
	GET /api/country_summary?target_date=
	GET /api/country/{country}/summary?target_date=
	GET /api/domain_range_summary?domain_name=&start_date=&end_date=
	GET /api/country_range_summary?country=&start_date=&end_date=
	GET /api/all_domains_last_dates

Control Endpoints (Basic auth):

	POST /api/update_data     202 started, 409 already running
	GET  /api/update_status   current sync progress snapshot
	POST /api/cache/clear     ?pattern= glob, defaults to *

Unauthenticated:

	GET /api/health
	GET /metrics

All JSON responses except /api/update_status use the APIResponse envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "..."}}

Cache keys are built with cache.Key and share a prefix per table, so the sync
manager's invalidation patterns (summary:*, domain:*, country:* and so on)
drop exactly the responses a phase could have changed.
*/
package api
