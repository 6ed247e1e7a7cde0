// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/gscstats/internal/cache"
	"github.com/tomtom215/gscstats/internal/models"
)

// errNotFound is returned by a compute func for a single-record lookup with no
// row. It is not cached.
var errNotFound = errors.New("metrics not found")

// serveCached writes the cached result for key, computing it on a miss.
func (h *Handler) serveCached(rw *ResponseWriter, r *http.Request, key string, compute cache.ComputeFunc) {
	data, err := h.cache.GetOrCompute(r.Context(), key, h.cacheTTL, compute)
	switch {
	case errors.Is(err, errNotFound):
		rw.NotFound("No data found for the requested domain and date")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.Success(data)
	}
}

// Summary handles GET /api/summary: every domain's record for one date.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := DateRequest{TargetDate: targetDate(r)}
	if !validateRequest(rw, &req) {
		return
	}
	date := models.MustParseDate(req.TargetDate)

	h.serveCached(rw, r, cache.Key("summary", date.String()), func(ctx context.Context) (any, error) {
		return h.store.GetSummaryByDate(ctx, date)
	})
}

// DomainSummary handles GET /api/domain/{domain}/summary.
func (h *Handler) DomainSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := DomainDateRequest{Domain: pathParam(r, "domain"), TargetDate: targetDate(r)}
	if !validateRequest(rw, &req) {
		return
	}
	date := models.MustParseDate(req.TargetDate)

	h.serveCached(rw, r, cache.Key("domain", req.Domain, "summary", date.String()), func(ctx context.Context) (any, error) {
		rec, err := h.store.GetDomainSummary(ctx, req.Domain, date)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, errNotFound
		}
		return rec, nil
	})
}

// DomainErrors handles GET /api/domain/{domain}/errors.
func (h *Handler) DomainErrors(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := DomainDateRequest{Domain: pathParam(r, "domain"), TargetDate: targetDate(r)}
	if !validateRequest(rw, &req) {
		return
	}
	date := models.MustParseDate(req.TargetDate)

	h.serveCached(rw, r, cache.Key("domain", req.Domain, "errors", date.String()), func(ctx context.Context) (any, error) {
		return h.store.GetDomainErrors(ctx, req.Domain, date)
	})
}

// CountrySummary handles GET /api/country_summary: every country row of
// every domain for one date.
func (h *Handler) CountrySummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := DateRequest{TargetDate: targetDate(r)}
	if !validateRequest(rw, &req) {
		return
	}
	date := models.MustParseDate(req.TargetDate)

	h.serveCached(rw, r, cache.Key("country", "summary", date.String()), func(ctx context.Context) (any, error) {
		return h.store.GetCountrySummary(ctx, date)
	})
}

// CountryDomains handles GET /api/country/{country}/summary: every domain's
// row for one country and date.
func (h *Handler) CountryDomains(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := CountryDateRequest{Country: pathParam(r, "country"), TargetDate: targetDate(r)}
	if !validateRequest(rw, &req) {
		return
	}
	date := models.MustParseDate(req.TargetDate)

	h.serveCached(rw, r, cache.Key("country", "by", req.Country, date.String()), func(ctx context.Context) (any, error) {
		return h.store.GetCountrySummaryByDate(ctx, req.Country, date)
	})
}

// DomainRange handles GET /api/domain_range_summary.
func (h *Handler) DomainRange(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()
	req := DomainRangeRequest{
		Domain:    q.Get("domain_name"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if !validateRequest(rw, &req) {
		return
	}
	dr, ok := parseRange(rw, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	h.serveCached(rw, r, cache.Key("domain_range", req.Domain, dr.Start.String(), dr.End.String()), func(ctx context.Context) (any, error) {
		return h.store.GetDomainRange(ctx, req.Domain, dr)
	})
}

// CountryRange handles GET /api/country_range_summary.
func (h *Handler) CountryRange(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()
	req := CountryRangeRequest{
		Country:   q.Get("country"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if !validateRequest(rw, &req) {
		return
	}
	dr, ok := parseRange(rw, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	h.serveCached(rw, r, cache.Key("country_range", req.Country, dr.Start.String(), dr.End.String()), func(ctx context.Context) (any, error) {
		return h.store.GetCountryRange(ctx, req.Country, dr)
	})
}

// AllDomainsLastDates handles GET /api/all_domains_last_dates: the latest
// persisted primary and country date of each configured domain.
func (h *Handler) AllDomainsLastDates(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	entities := h.sync.Entities()

	h.serveCached(rw, r, cache.Key("last_dates", "all"), func(ctx context.Context) (any, error) {
		return h.store.AllLastDates(ctx, entities)
	})
}
