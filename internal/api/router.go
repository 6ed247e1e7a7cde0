// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/gscstats/internal/auth"
	"github.com/tomtom215/gscstats/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiCfg uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiCfg *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: NewChiMiddleware(chiCfg),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.With(router.chiMiddleware.RateLimitHealth()).Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.SecurityHeaders)
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.With(router.chiMiddleware.RateLimitHealth()).Get("/health", router.handler.Health)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.auth.Authenticate)

			r.Get("/summary", router.handler.Summary)
			r.Get("/domain/{domain}/summary", router.handler.DomainSummary)
			r.Get("/domain/{domain}/errors", router.handler.DomainErrors)
			r.Get("/country_summary", router.handler.CountrySummary)
			r.Get("/country/{country}/summary", router.handler.CountryDomains)
			r.Get("/domain_range_summary", router.handler.DomainRange)
			r.Get("/country_range_summary", router.handler.CountryRange)
			r.Get("/all_domains_last_dates", router.handler.AllDomainsLastDates)
			r.Get("/update_status", router.handler.UpdateStatus)

			r.With(router.chiMiddleware.RateLimitControl()).Post("/update_data", router.handler.UpdateData)
			r.With(router.chiMiddleware.RateLimitControl()).Post("/cache/clear", router.handler.ClearCache)
		})
	})

	return r
}
