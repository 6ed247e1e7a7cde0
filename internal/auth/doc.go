// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package auth provides HTTP Basic authentication and security headers for the
API.

Authentication Modes (security.auth_mode):

  - basic: every protected route requires the configured admin username and
    password. The password is bcrypt-hashed once at startup and the username
    is compared in constant time.
  - none: authentication is skipped. Configuration validation refuses this
    mode when environment=production.

Usage Example:

	mw, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Group(func(r chi.Router) {
	    r.Use(mw.Authenticate)
	    r.Get("/api/summary", h.Summary)
	})

The authenticated username is available to handlers through
auth.UsernameFromContext.
*/
package auth
