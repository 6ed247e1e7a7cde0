// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gscstats/internal/models"
	"github.com/tomtom215/gscstats/internal/validation"
)

// maxRangeDays bounds range queries to a bit over two years of daily rows
const maxRangeDays = 800

// DateRequest is a single-date query.
type DateRequest struct {
	TargetDate string `json:"target_date" validate:"required,isodate"`
}

// DomainDateRequest is a single-date query for one domain.
type DomainDateRequest struct {
	Domain     string `json:"domain" validate:"required,entity"`
	TargetDate string `json:"target_date" validate:"required,isodate"`
}

// CountryDateRequest is a single-date query for one country.
type CountryDateRequest struct {
	Country    string `json:"country" validate:"required,country"`
	TargetDate string `json:"target_date" validate:"required,isodate"`
}

// DomainRangeRequest is an inclusive date range query for one domain.
type DomainRangeRequest struct {
	Domain    string `json:"domain_name" validate:"required,entity"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate,datege=StartDate"`
}

// CountryRangeRequest is an inclusive date range query for one country.
type CountryRangeRequest struct {
	Country   string `json:"country" validate:"required,country"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate,datege=StartDate"`
}

// CacheClearRequest selects the cache keys to drop.
type CacheClearRequest struct {
	Pattern string `json:"pattern" validate:"required,cachepattern"`
}

// validateRequest validates v and writes a 400 on failure. It reports
// whether the handler may continue.
func validateRequest(rw *ResponseWriter, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
	return false
}

// parseRange turns validated start/end strings into a DateRange and enforces
// the span limit.
func parseRange(rw *ResponseWriter, start, end string) (models.DateRange, bool) {
	r := models.DateRange{
		Start: models.MustParseDate(start),
		End:   models.MustParseDate(end),
	}
	if r.Len() > maxRangeDays {
		rw.ValidationError("date range too long", map[string]interface{}{
			"max_days": maxRangeDays,
			"days":     r.Len(),
		})
		return models.DateRange{}, false
	}
	return r, true
}

func targetDate(r *http.Request) string {
	return r.URL.Query().Get("target_date")
}

// pathParam returns a route parameter. Chi routes on the raw path when the
// URL carries escapes, so URL-prefix properties arrive still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
