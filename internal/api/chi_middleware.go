// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/metrics"
)

// Per-route-class limits. Probes poll often; control routes start syncs and
// drop caches.
const (
	healthRequestsPerMinute  = 1000
	controlRequestsPerMinute = 10
)

// ChiMiddlewareConfig configures CORS and the API rate limiter.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string // empty rejects every cross-origin request

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
	RateLimitKeyFunc  httprate.KeyFunc // nil keys by client IP
}

// DefaultChiMiddlewareConfig allows 100 requests per minute per IP and no
// cross-origin callers.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{RateLimitRequests: 100, RateLimitWindow: time.Minute}
}

// ChiMiddlewareConfigFrom overlays non-zero security settings on the defaults.
func ChiMiddlewareConfigFrom(cfg *config.SecurityConfig) *ChiMiddlewareConfig {
	c := DefaultChiMiddlewareConfig()
	if cfg == nil {
		return c
	}
	c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, cfg.CORSOrigins...)
	if cfg.RateLimitReqs > 0 {
		c.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		c.RateLimitWindow = cfg.RateLimitWindow
	}
	c.RateLimitDisabled = cfg.RateLimitDisabled
	return c
}

// ChiMiddleware builds the go-chi/cors and httprate handlers the router mounts.
type ChiMiddleware struct {
	cfg  ChiMiddlewareConfig
	cors func(http.Handler) http.Handler
}

func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}
	return &ChiMiddleware{
		cfg: *cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           int((24 * time.Hour).Seconds()),
		}),
	}
}

func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler { return m.cors }

// RateLimit applies the configured limit to data routes.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(m.cfg.RateLimitRequests, m.cfg.RateLimitWindow)
}

func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limit(healthRequestsPerMinute, time.Minute)
}

func (m *ChiMiddleware) RateLimitControl() func(http.Handler) http.Handler {
	return m.limit(controlRequestsPerMinute, time.Minute)
}

func (m *ChiMiddleware) limit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	key := m.cfg.RateLimitKeyFunc
	if key == nil {
		key = httprate.KeyByIP
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
			NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded, retry later")
		}),
	)
}
