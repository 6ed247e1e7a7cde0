// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/cache"
	"github.com/tomtom215/gscstats/internal/models"
)

// MetricsReader is the read side of the time-series store.
// Implemented by *database.DB.
type MetricsReader interface {
	GetSummaryByDate(ctx context.Context, date models.Date) ([]models.MetricRecord, error)
	GetDomainSummary(ctx context.Context, entity string, date models.Date) (*models.MetricRecord, error)
	GetDomainErrors(ctx context.Context, entity string, date models.Date) ([]models.ErrorCount, error)
	GetCountrySummary(ctx context.Context, date models.Date) ([]models.DimensionedMetricRecord, error)
	GetCountrySummaryByDate(ctx context.Context, country string, date models.Date) ([]models.DimensionedMetricRecord, error)
	GetDomainRange(ctx context.Context, entity string, r models.DateRange) ([]models.MetricRecord, error)
	GetCountryRange(ctx context.Context, country string, r models.DateRange) ([]models.DimensionedMetricRecord, error)
	AllLastDates(ctx context.Context, entities []string) ([]models.LastDates, error)
	Ping(ctx context.Context) error
}

// SyncController starts runs and reports their progress.
// Implemented by *sync.Manager.
type SyncController interface {
	TriggerSync() (models.SyncProgress, error)
	Progress() models.SyncProgress
	LastReport() *models.SyncReport
	Entities() []string
}

// ResponseCache caches encoded handler results.
// Implemented by *cache.Tiered.
type ResponseCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute cache.ComputeFunc) (json.RawMessage, error)
	Invalidate(ctx context.Context, pattern string) bool
	RemoteEnabled() bool
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_metrics.go: cached read endpoints
//   - handlers_sync.go: sync trigger, status and cache control
//   - handlers_health.go: health endpoint
type Handler struct {
	store     MetricsReader
	sync      SyncController
	cache     ResponseCache
	cacheTTL  time.Duration
	version   string
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithCacheTTL sets the TTL of cached responses. Zero uses the cache default.
func WithCacheTTL(ttl time.Duration) HandlerOption {
	return func(h *Handler) { h.cacheTTL = ttl }
}

// WithVersion sets the version reported by /api/health.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates a new API handler.
//
// Example:
//
//	handler := api.NewHandler(db, manager, tiered)
//	router := api.NewRouter(handler, authMiddleware, api.ChiMiddlewareConfigFrom(&cfg.Security))
//	http.ListenAndServe(":8000", router.Setup())
func NewHandler(store MetricsReader, syncCtl SyncController, respCache ResponseCache, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:     store,
		sync:      syncCtl,
		cache:     respCache,
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
