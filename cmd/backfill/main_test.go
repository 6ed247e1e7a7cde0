// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package main

import (
	"errors"
	"flag"
	"io"
	"path/filepath"
	"testing"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/models"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		wantKind models.SyncKind
		wantDays int
	}{
		{"primary range", []string{"-start", "2024-01-01", "-end", "2024-01-31"}, false, models.KindPrimary, 31},
		{"country range", []string{"-start", "2024-02-01", "-end", "2024-02-01", "-kind", "country"}, false, models.KindDimensioned, 1},
		{"missing end", []string{"-start", "2024-01-01"}, true, "", 0},
		{"bad date", []string{"-start", "2024-13-01", "-end", "2024-12-31"}, true, "", 0},
		{"end before start", []string{"-start", "2024-02-01", "-end", "2024-01-01"}, true, "", 0},
		{"unknown kind", []string{"-start", "2024-01-01", "-end", "2024-01-02", "-kind", "queries"}, true, "", 0},
		{"stray argument", []string{"-start", "2024-01-01", "-end", "2024-01-02", "extra"}, true, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseArgs(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if opts.kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", opts.kind, tt.wantKind)
			}
			if got := opts.dates.Len(); got != tt.wantDays {
				t.Errorf("days = %d, want %d", got, tt.wantDays)
			}
		})
	}
}

func TestParseArgs_Authorize(t *testing.T) {
	opts, err := parseArgs([]string{"-authorize"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if !opts.authorize {
		t.Error("authorize flag not set")
	}
}

func TestParseArgs_Help(t *testing.T) {
	if _, err := parseArgs([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseArgs(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestOpenLedger(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		ledger, err := openLedger(&config.ProgressConfig{})
		if err != nil || ledger != nil {
			t.Errorf("openLedger() = %v, %v, want nil, nil", ledger, err)
		}
	})

	t.Run("shared with the server", func(t *testing.T) {
		cfg := &config.ProgressConfig{BadgerPath: filepath.Join(t.TempDir(), "progress")}
		date := models.MustParseDate("2024-06-02")

		ledger, err := openLedger(cfg)
		if err != nil {
			t.Fatalf("openLedger() error = %v", err)
		}
		if err := ledger.RecordFailure(models.KindPrimary, "example.com", date); err != nil {
			t.Fatal(err)
		}
		if err := ledger.Close(); err != nil {
			t.Fatal(err)
		}

		reopened, err := openLedger(cfg)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer reopened.Close()
		got, err := reopened.EarliestFailure(models.KindPrimary, "example.com")
		if err != nil || got == nil || !got.Equal(date) {
			t.Errorf("EarliestFailure() = %v, %v, want %s", got, err, date)
		}
	})
}
