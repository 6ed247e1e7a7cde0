// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. It is held for the
// whole test so that only one test has an active connection at a time.
var testDBSemaphore = make(chan struct{}, 1)

// testDBMutex guards the New() call itself.
var testDBMutex sync.Mutex

// setupTestDB creates an in-memory database, failing fast if DuckDB hangs.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	type result struct {
		db  *DB
		err error
	}
	done := make(chan result, 1)

	go func() {
		testDBMutex.Lock()
		defer testDBMutex.Unlock()
		db, err := New(&config.DatabaseConfig{
			Path:      ":memory:",
			MaxMemory: "1GB",
		})
		done <- result{db, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Failed to create test database: %v", r.err)
		}
		t.Cleanup(func() {
			if err := r.db.Close(); err != nil {
				t.Logf("close test database: %v", err)
			}
		})
		return r.db
	case <-time.After(120 * time.Second):
		t.Fatal("Timed out creating test database")
		return nil
	}
}

func primaryRecord(domain, date string, clicks int64) *models.DailyMetrics {
	return models.NewDailyMetrics(models.MetricRecord{
		EntityID:    domain,
		Date:        models.MustParseDate(date),
		Clicks:      clicks,
		Impressions: clicks * 10,
		CTR:         0.1,
		AvgPosition: 4.5,
	})
}

func TestUpsertDailyMetrics_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	dm := primaryRecord("example.com", "2025-03-01", 12)
	dm.Errors["404"] = 3
	dm.Errors["server_error"] = 1

	for i := 0; i < 3; i++ {
		if err := db.UpsertDailyMetrics(ctx, dm); err != nil {
			t.Fatalf("UpsertDailyMetrics() run %d error = %v", i, err)
		}
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.DomainSummaries != 1 || counts.DomainErrors != 2 {
		t.Errorf("counts = %+v, want 1 summary and 2 errors", counts)
	}

	got, err := db.GetDomainSummary(ctx, "example.com", models.MustParseDate("2025-03-01"))
	if err != nil {
		t.Fatalf("GetDomainSummary() error = %v", err)
	}
	if got == nil || got.Clicks != 12 || got.Impressions != 120 || got.CTR != 0.1 || got.AvgPosition != 4.5 {
		t.Errorf("GetDomainSummary() = %+v", got)
	}
}

func TestUpsertDailyMetrics_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := models.MustParseDate("2025-03-01")

	first := primaryRecord("example.com", "2025-03-01", 5)
	first.Errors["404"] = 2
	if err := db.UpsertDailyMetrics(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := primaryRecord("example.com", "2025-03-01", 9)
	second.Errors["404"] = 7
	second.Errors["soft_404"] = 1
	if err := db.UpsertDailyMetrics(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetDomainSummary(ctx, "example.com", date)
	if err != nil || got == nil || got.Clicks != 9 {
		t.Fatalf("GetDomainSummary() = %+v, %v; want clicks 9", got, err)
	}

	errs, err := db.GetDomainErrors(ctx, "example.com", date)
	if err != nil {
		t.Fatalf("GetDomainErrors() error = %v", err)
	}
	if len(errs) != 2 || errs[0].Kind != "404" || errs[0].Count != 7 || errs[1].Kind != "soft_404" {
		t.Errorf("GetDomainErrors() = %+v", errs)
	}
}

func TestUpsertDailyMetrics_RollbackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := models.MustParseDate("2025-03-02")

	if err := db.UpsertDailyMetrics(ctx, primaryRecord("example.com", "2025-03-02", 4)); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	// The summary row is valid but the negative error count violates a CHECK
	// constraint, so the whole transaction must roll back.
	bad := primaryRecord("example.com", "2025-03-02", 100)
	bad.Errors["404"] = -1
	err := db.UpsertDailyMetrics(ctx, bad)
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("UpsertDailyMetrics() error = %v, want ErrStorage", err)
	}

	got, err := db.GetDomainSummary(ctx, "example.com", date)
	if err != nil || got == nil {
		t.Fatalf("GetDomainSummary() = %+v, %v", got, err)
	}
	if got.Clicks != 4 {
		t.Errorf("Clicks = %d after failed upsert, want prior value 4", got.Clicks)
	}
	errs, _ := db.GetDomainErrors(ctx, "example.com", date)
	if len(errs) != 0 {
		t.Errorf("error rows = %+v, want none", errs)
	}
}

func TestUpsertDailyMetrics_Validation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertDailyMetrics(ctx, nil); err == nil {
		t.Error("expected error for nil metrics")
	}
	noDate := models.NewDailyMetrics(models.MetricRecord{EntityID: "example.com"})
	if err := db.UpsertDailyMetrics(ctx, noDate); !errors.Is(err, ErrStorage) {
		t.Errorf("missing date error = %v, want ErrStorage", err)
	}
}

func TestUpsertDailyMetrics_ConcurrentSameKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 10)
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(clicks int64) {
			defer wg.Done()
			errCh <- db.UpsertDailyMetrics(ctx, primaryRecord("example.com", "2025-03-03", clicks))
		}(int64(i))
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Errorf("concurrent upsert error = %v", err)
		}
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.DomainSummaries != 1 {
		t.Errorf("DomainSummaries = %d, want exactly 1 row per key", counts.DomainSummaries)
	}
}

func TestGetDomainSummary_Missing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetDomainSummary(context.Background(), "nope.com", models.MustParseDate("2025-01-01"))
	if err != nil {
		t.Fatalf("GetDomainSummary() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetDomainSummary() = %+v, want nil", got)
	}
}

func TestGetDomainRange_Ordered(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Insert out of order
	for _, day := range []string{"2025-03-05", "2025-03-01", "2025-03-03", "2025-02-27", "2025-03-09"} {
		if err := db.UpsertDailyMetrics(ctx, primaryRecord("example.com", day, 1)); err != nil {
			t.Fatalf("upsert %s: %v", day, err)
		}
	}
	if err := db.UpsertDailyMetrics(ctx, primaryRecord("other.com", "2025-03-02", 1)); err != nil {
		t.Fatalf("upsert other.com: %v", err)
	}

	r := models.DateRange{Start: models.MustParseDate("2025-03-01"), End: models.MustParseDate("2025-03-05")}
	rows, err := db.GetDomainRange(ctx, "example.com", r)
	if err != nil {
		t.Fatalf("GetDomainRange() error = %v", err)
	}

	want := []string{"2025-03-01", "2025-03-03", "2025-03-05"}
	if len(rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Date.String() != w || rows[i].EntityID != "example.com" {
			t.Errorf("rows[%d] = %s %s, want example.com %s", i, rows[i].EntityID, rows[i].Date, w)
		}
	}

	byDate, err := db.GetSummaryByDate(ctx, models.MustParseDate("2025-03-02"))
	if err != nil || len(byDate) != 1 || byDate[0].EntityID != "other.com" {
		t.Errorf("GetSummaryByDate() = %+v, %v", byDate, err)
	}
}

func TestLastDates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	last, err := db.LastMetricDate(ctx, "example.com")
	if err != nil || last != nil {
		t.Fatalf("LastMetricDate() on empty store = %v, %v; want nil, nil", last, err)
	}

	for _, day := range []string{"2025-03-01", "2025-03-08", "2025-03-04"} {
		if err := db.UpsertDailyMetrics(ctx, primaryRecord("example.com", day, 2)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := db.UpsertCountryMetrics(ctx, "example.com", models.MustParseDate("2025-03-06"),
		[]models.DimensionedMetricRecord{{Dimension: "usa", Clicks: 1}}); err != nil {
		t.Fatalf("UpsertCountryMetrics() error = %v", err)
	}

	all, err := db.AllLastDates(ctx, []string{"example.com", "empty.com"})
	if err != nil {
		t.Fatalf("AllLastDates() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(AllLastDates()) = %d, want 2", len(all))
	}
	if all[0].Primary == nil || all[0].Primary.String() != "2025-03-08" {
		t.Errorf("primary last date = %v, want 2025-03-08", all[0].Primary)
	}
	if all[0].Dimensioned == nil || all[0].Dimensioned.String() != "2025-03-06" {
		t.Errorf("country last date = %v, want 2025-03-06", all[0].Dimensioned)
	}
	if all[1].Primary != nil || all[1].Dimensioned != nil {
		t.Errorf("empty.com = %+v, want nil dates", all[1])
	}
}

func TestUpsertCountryMetrics(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := models.MustParseDate("2025-03-01")

	rows := []models.DimensionedMetricRecord{
		{Dimension: "usa", Clicks: 10, Impressions: 100, CTR: 0.1, AvgPosition: 3},
		{Dimension: "deu", Clicks: 2, Impressions: 40, CTR: 0.05, AvgPosition: 7},
		{Dimension: "", Clicks: 1, Impressions: 9, CTR: 0.11, AvgPosition: 12},
	}
	for i := 0; i < 2; i++ {
		if err := db.UpsertCountryMetrics(ctx, "example.com", date, rows); err != nil {
			t.Fatalf("UpsertCountryMetrics() run %d error = %v", i, err)
		}
	}

	got, err := db.GetCountrySummary(ctx, date)
	if err != nil {
		t.Fatalf("GetCountrySummary() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(GetCountrySummary()) = %d, want 3", len(got))
	}
	countries := map[string]bool{}
	for _, r := range got {
		countries[r.Dimension] = true
		if r.EntityID != "example.com" || !r.Date.Equal(date) {
			t.Errorf("row not keyed by domain and date: %+v", r)
		}
	}
	if !countries[models.UnknownDimension] {
		t.Errorf("empty dimension not stored as %q: %v", models.UnknownDimension, countries)
	}

	usa, err := db.GetCountrySummaryByDate(ctx, "usa", date)
	if err != nil || len(usa) != 1 || usa[0].Clicks != 10 {
		t.Errorf("GetCountrySummaryByDate() = %+v, %v", usa, err)
	}

	// Empty input is a no-op
	if err := db.UpsertCountryMetrics(ctx, "example.com", date, nil); err != nil {
		t.Errorf("empty upsert error = %v", err)
	}
}

func TestUpsertCountryMetrics_RollbackOnFailure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := models.MustParseDate("2025-03-01")

	rows := []models.DimensionedMetricRecord{
		{Dimension: "aaa", Clicks: 1},
		{Dimension: "zzz", Clicks: -5},
	}
	if err := db.UpsertCountryMetrics(ctx, "example.com", date, rows); !errors.Is(err, ErrStorage) {
		t.Fatalf("UpsertCountryMetrics() error = %v, want ErrStorage", err)
	}

	got, err := db.GetCountrySummary(ctx, date)
	if err != nil {
		t.Fatalf("GetCountrySummary() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rows after failed upsert = %+v, want none", got)
	}
}

func TestGetCountryRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, day := range []string{"2025-03-03", "2025-03-01", "2025-03-02"} {
		for _, domain := range []string{"b.com", "a.com"} {
			err := db.UpsertCountryMetrics(ctx, domain, models.MustParseDate(day), []models.DimensionedMetricRecord{
				{Dimension: "usa", Clicks: 1},
				{Dimension: "fra", Clicks: 2},
			})
			if err != nil {
				t.Fatalf("upsert %s %s: %v", domain, day, err)
			}
		}
	}

	r := models.DateRange{Start: models.MustParseDate("2025-03-01"), End: models.MustParseDate("2025-03-02")}
	got, err := db.GetCountryRange(ctx, "usa", r)
	if err != nil {
		t.Fatalf("GetCountryRange() error = %v", err)
	}
	want := []string{"2025-03-01 a.com", "2025-03-01 b.com", "2025-03-02 a.com", "2025-03-02 b.com"}
	if len(got) != len(want) {
		t.Fatalf("len(GetCountryRange()) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if g := fmt.Sprintf("%s %s", got[i].Date, got[i].EntityID); g != w {
			t.Errorf("row %d = %s, want %s", i, g, w)
		}
	}
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), true},
		{errors.New("Conflict on update of tuple"), true},
		{errors.New("Constraint Error: CHECK constraint failed"), false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(tt.err); got != tt.want {
			t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithConflictRetry(t *testing.T) {
	t.Run("retries conflicts then gives up", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			return errors.New("Transaction conflict")
		})
		if calls != maxWriteRetries {
			t.Errorf("calls = %d, want %d", calls, maxWriteRetries)
		}
		if !errors.Is(err, ErrStorage) {
			t.Errorf("error = %v, want ErrStorage", err)
		}
	})

	t.Run("succeeds after a conflict", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("Transaction conflict")
			}
			return nil
		})
		if err != nil || calls != 2 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("other errors fail immediately", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(context.Background(), func(context.Context) error {
			calls++
			return errors.New("Constraint Error")
		})
		if calls != 1 || !errors.Is(err, ErrStorage) {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})
}
