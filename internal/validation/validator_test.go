// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type rangeRequest struct {
	Domain    string `json:"domain_name" validate:"required,entity"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate,datege=StartDate"`
}

func TestValidateStruct_Range(t *testing.T) {
	tests := []struct {
		name      string
		input     rangeRequest
		wantField string
		wantTag   string
	}{
		{
			name:  "valid range",
			input: rangeRequest{Domain: "example.com", StartDate: "2025-01-01", EndDate: "2025-01-31"},
		},
		{
			name:  "single day",
			input: rangeRequest{Domain: "example.com", StartDate: "2025-01-01", EndDate: "2025-01-01"},
		},
		{
			name:      "inverted range",
			input:     rangeRequest{Domain: "example.com", StartDate: "2025-02-01", EndDate: "2025-01-31"},
			wantField: "end_date",
			wantTag:   "datege",
		},
		{
			name:      "bad date format",
			input:     rangeRequest{Domain: "example.com", StartDate: "01/02/2025", EndDate: "2025-01-31"},
			wantField: "start_date",
			wantTag:   "isodate",
		},
		{
			name:      "impossible date",
			input:     rangeRequest{Domain: "example.com", StartDate: "2025-01-01", EndDate: "2025-02-30"},
			wantField: "end_date",
			wantTag:   "isodate",
		},
		{
			name:      "missing domain",
			input:     rangeRequest{StartDate: "2025-01-01", EndDate: "2025-01-31"},
			wantField: "domain_name",
			wantTag:   "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantTag == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("error = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateEntity(t *testing.T) {
	type req struct {
		Domain string `json:"domain" validate:"entity"`
	}
	tests := []struct {
		value string
		valid bool
	}{
		{"example.com", true},
		{"sub.example.co.uk", true},
		{"sc-domain:example.com", true},
		{"https://example.com/", true},
		{"http://example.com/blog/", true},
		{"", false},
		{"not a domain", false},
		{"-bad.com", false},
		{"sc-domain:", false},
		{"https://exa mple.com/", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			verr := ValidateStruct(&req{Domain: tt.value})
			if (verr == nil) != tt.valid {
				t.Errorf("valid = %v, want %v (%v)", verr == nil, tt.valid, verr)
			}
		})
	}
}

func TestValidateCountryAndPattern(t *testing.T) {
	type req struct {
		Country string `json:"country" validate:"omitempty,country"`
		Pattern string `json:"pattern" validate:"omitempty,cachepattern"`
	}
	tests := []struct {
		name  string
		input req
		valid bool
	}{
		{"alpha-3", req{Country: "usa"}, true},
		{"unknown marker", req{Country: "N/A"}, true},
		{"upper case", req{Country: "USA"}, false},
		{"alpha-2", req{Country: "us"}, false},
		{"star", req{Pattern: "*"}, true},
		{"prefix glob", req{Pattern: "country_range:*"}, true},
		{"class", req{Pattern: "domain:[ab]*"}, true},
		{"unclosed class", req{Pattern: "domain:[ab"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if (verr == nil) != tt.valid {
				t.Errorf("valid = %v, want %v (%v)", verr == nil, tt.valid, verr)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		verr := ValidateStruct(&rangeRequest{Domain: "example.com", StartDate: "bad", EndDate: "2025-01-01"})
		if verr == nil {
			t.Fatal("expected error")
		}
		apiErr := verr.ToAPIError()
		if apiErr.Code != "VALIDATION_ERROR" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.Message != "start_date must be a date in YYYY-MM-DD format" {
			t.Errorf("Message = %q", apiErr.Message)
		}
		if apiErr.Details["field"] != "start_date" {
			t.Errorf("Details = %v", apiErr.Details)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		verr := ValidateStruct(&rangeRequest{})
		if verr == nil {
			t.Fatal("expected error")
		}
		apiErr := verr.ToAPIError()
		for _, f := range []string{"domain_name", "start_date", "end_date"} {
			if !strings.Contains(apiErr.Message, f) {
				t.Errorf("message %q missing %s", apiErr.Message, f)
			}
		}
		fields, ok := apiErr.Details["fields"].([]map[string]interface{})
		if !ok || len(fields) != 3 {
			t.Errorf("fields = %v", apiErr.Details["fields"])
		}
	})

	t.Run("empty", func(t *testing.T) {
		apiErr := (&RequestValidationError{}).ToAPIError()
		if apiErr.Message != "Validation failed" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestValidateStruct_NonStruct(t *testing.T) {
	verr := ValidateStruct("not a struct")
	if verr == nil {
		t.Fatal("expected error for non-struct input")
	}
	if verr.Errors()[0].Field() != "unknown" {
		t.Errorf("Field = %q, want unknown", verr.Errors()[0].Field())
	}
}
