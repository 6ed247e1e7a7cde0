// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package cache provides the tiered response cache used by the read API.

Two tiers are kept independently:
  - Remote: a shared Redis instance (RedisStore), payloads stored in a
    columnar form for list responses (see Compress)
  - Local: an in-process TTL map (Local), always available

# Lookup Order

GetOrCompute tries the remote tier, then the local tier, then runs the
compute function and writes the result to both. A remote read error falls
through to the local tier; a remote write error is logged and ignored.
Concurrent computes of the same key are collapsed into one, and that compute
is detached from the caller that started it, so a canceled request does not
fail the others waiting on it.

# Keys

Keys have the form op:arg1:arg2 with each argument path-escaped (see Key).
The remote tier prepends the configured namespace prefix internally, so
callers always use logical keys and patterns:

	key := cache.Key("country_range", "usa", "2025-01-01", "2025-01-31")
	data, err := c.GetOrCompute(ctx, key, 0, func(ctx context.Context) (any, error) {
	    return db.GetCountryRange(ctx, "usa", r)
	})

	// after a country sync
	c.Invalidate(ctx, "country_range:*")

# Degradation

If the remote tier does not answer at startup the cache runs local-only and
logs the degradation once.
*/
package cache
