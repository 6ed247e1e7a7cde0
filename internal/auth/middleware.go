// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/logging"
)

// Auth modes accepted by security.auth_mode.
const (
	AuthModeBasic = "basic"
	AuthModeNone  = "none"
)

type contextKey string

const usernameContextKey contextKey = "auth-username"

// UsernameFromContext returns the authenticated username, or "" when the
// request was not authenticated.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameContextKey).(string); ok {
		return v
	}
	return ""
}

// Middleware enforces the configured auth mode on wrapped handlers.
type Middleware struct {
	basic    *BasicAuthManager
	authMode string
}

// NewMiddleware builds the middleware for cfg. Basic mode requires an admin
// username and password.
func NewMiddleware(cfg *config.SecurityConfig) (*Middleware, error) {
	if cfg == nil {
		return nil, errors.New("security configuration is required")
	}

	switch cfg.AuthMode {
	case AuthModeNone:
		return &Middleware{authMode: AuthModeNone}, nil
	case AuthModeBasic:
		basic, err := NewBasicAuthManager(cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("basic auth: %w", err)
		}
		return &Middleware{basic: basic, authMode: AuthModeBasic}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// Mode returns the active auth mode.
func (m *Middleware) Mode() string {
	return m.authMode
}

// Authenticate rejects requests without valid credentials with 401 and a
// WWW-Authenticate challenge.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == AuthModeNone {
			next.ServeHTTP(w, r)
			return
		}

		username, err := m.basic.ValidateCredentials(r.Header.Get("Authorization"))
		if err != nil {
			if errors.Is(err, ErrNoCredentials) {
				m.sendBasicAuthChallenge(w, "Unauthorized: authentication required")
				return
			}
			logging.Warn().Err(err).Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("Basic auth validation failed")
			m.sendBasicAuthChallenge(w, "Unauthorized: invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), usernameContextKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) sendBasicAuthChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", m.basic.WWWAuthenticateHeader())
	http.Error(w, message, http.StatusUnauthorized)
}

// SecurityHeaders sets response headers for a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")

		// HSTS only when served over HTTPS
		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
