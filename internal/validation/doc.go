// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator with the custom tags
// the API query parameters need, and translates failures into the
// VALIDATION_ERROR response format.
//
// # Custom Tags
//
//	isodate       YYYY-MM-DD calendar date
//	datege=Field  date on or after the date held by Field
//	entity        host name, sc-domain: property or URL-prefix property
//	country       lower-case ISO 3166-1 alpha-3 code, or "N/A"
//	cachepattern  valid doublestar glob
//
// Field names in messages come from the json tag, so errors name the query
// parameter the client sent.
//
// # Example
//
//	type RangeRequest struct {
//	    Domain    string `json:"domain_name" validate:"required,entity"`
//	    StartDate string `json:"start_date" validate:"required,isodate"`
//	    EndDate   string `json:"end_date" validate:"required,isodate,datege=StartDate"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
