// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package gsc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

// ErrProviderUnavailable wraps every failed Search Console call.
var ErrProviderUnavailable = errors.New("metrics provider unavailable")

// Query defaults
const (
	DefaultRowLimit   = 10000
	DefaultSearchType = "web"
	DefaultTimeout    = 30 * time.Second
)

// Provider fetches one day of metrics for one domain.
type Provider interface {
	FetchPrimary(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error)
	FetchDimensioned(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error)
}

// Client queries the Search Analytics API.
type Client struct {
	svc        *searchconsole.Service
	limiter    *rate.Limiter
	searchType string
	rowLimit   int64
	timeout    time.Duration
}

// NewClient creates a client. opts carry credentials (see ClientOptions) or,
// in tests, an endpoint and HTTP client.
func NewClient(ctx context.Context, cfg *config.ProviderConfig, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	svc, err := searchconsole.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create search console service: %w", err)
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	searchType := cfg.SearchType
	if searchType == "" {
		searchType = DefaultSearchType
	}
	rowLimit := cfg.RowLimit
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		svc:        svc,
		limiter:    rate.NewLimiter(limit, burst),
		searchType: searchType,
		rowLimit:   rowLimit,
		timeout:    timeout,
	}, nil
}

// SiteURL maps a configured domain to its Search Console property. Values
// that already name a property (sc-domain: or a full URL) pass through.
func SiteURL(entity string) string {
	if strings.HasPrefix(entity, "sc-domain:") ||
		strings.HasPrefix(entity, "https://") ||
		strings.HasPrefix(entity, "http://") {
		return entity
	}
	return "https://" + entity + "/"
}

// FetchPrimary returns the domain's daily totals, or (nil, nil) when the API
// has no row for the date. Index coverage is not exposed by the API, so the
// page counts are zero and no error kinds are reported.
func (c *Client) FetchPrimary(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error) {
	resp, err := c.query(ctx, "primary", entity, date, []string{"date"})
	if err != nil {
		return nil, err
	}
	if len(resp.Rows) == 0 {
		return nil, nil
	}

	row := resp.Rows[0]
	return models.NewDailyMetrics(models.MetricRecord{
		EntityID:    entity,
		Date:        date,
		Clicks:      int64(row.Clicks),
		Impressions: int64(row.Impressions),
		CTR:         row.Ctr,
		AvgPosition: row.Position,
	}), nil
}

// FetchDimensioned returns one row per country. A row without a country key
// is reported under models.UnknownDimension.
func (c *Client) FetchDimensioned(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error) {
	resp, err := c.query(ctx, "country", entity, date, []string{"date", "country"})
	if err != nil {
		return nil, err
	}

	records := make([]models.DimensionedMetricRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		country := models.UnknownDimension
		if len(row.Keys) > 1 && row.Keys[1] != "" {
			country = row.Keys[1]
		}
		records = append(records, models.DimensionedMetricRecord{
			EntityID:    entity,
			Date:        date,
			Dimension:   country,
			Clicks:      int64(row.Clicks),
			Impressions: int64(row.Impressions),
			CTR:         row.Ctr,
			AvgPosition: row.Position,
		})
	}
	return records, nil
}

func (c *Client) query(ctx context.Context, operation, entity string, date models.Date, dimensions []string) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrProviderUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	day := date.String()
	req := &searchconsole.SearchAnalyticsQueryRequest{
		StartDate:  day,
		EndDate:    day,
		Dimensions: dimensions,
		Type:       c.searchType,
		RowLimit:   c.rowLimit,
	}

	start := time.Now()
	resp, err := c.svc.Searchanalytics.Query(SiteURL(entity), req).Context(ctx).Do()
	metrics.RecordProviderCall(operation, time.Since(start), err)
	if err != nil {
		logging.Debug().Err(err).Str("domain", entity).Str("date", day).Str("operation", operation).Msg("Search Console query failed")
		return nil, fmt.Errorf("%w: %s query for %s: %w", ErrProviderUnavailable, operation, entity, err)
	}
	return resp, nil
}

var _ Provider = (*Client)(nil)
