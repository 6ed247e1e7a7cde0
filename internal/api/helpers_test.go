// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/auth"
	"github.com/tomtom215/gscstats/internal/cache"
	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/models"
	syncpkg "github.com/tomtom215/gscstats/internal/sync"
)

// fakeStore serves fixed rows and counts calls per method.
type fakeStore struct {
	mu      sync.Mutex
	calls   map[string]int
	summary []models.MetricRecord
	domain  *models.MetricRecord
	errs    []models.ErrorCount
	country []models.DimensionedMetricRecord
	last    []models.LastDates
	lastArg []string
	failAll error
	pingErr error
}

func newFakeStore() *fakeStore {
	d := models.MustParseDate("2025-02-25")
	return &fakeStore{
		calls: map[string]int{},
		summary: []models.MetricRecord{
			{EntityID: "a.com", Date: d, Clicks: 10, Impressions: 100, CTR: 0.1, AvgPosition: 4.2},
			{EntityID: "b.com", Date: d, Clicks: 5, Impressions: 50, CTR: 0.1, AvgPosition: 7},
		},
		domain: &models.MetricRecord{EntityID: "a.com", Date: d, Clicks: 10, Impressions: 100, CTR: 0.1, AvgPosition: 4.2},
		errs:   []models.ErrorCount{{EntityID: "a.com", Date: d, Kind: "not_found", Count: 3}},
		country: []models.DimensionedMetricRecord{
			{EntityID: "a.com", Date: d, Dimension: "deu", Clicks: 4, Impressions: 40, CTR: 0.1, AvgPosition: 3},
		},
		last: []models.LastDates{{EntityID: "a.com", Primary: &d, Dimensioned: &d}},
	}
}

func (s *fakeStore) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	return s.failAll
}

func (s *fakeStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *fakeStore) GetSummaryByDate(ctx context.Context, date models.Date) ([]models.MetricRecord, error) {
	if err := s.record("summary"); err != nil {
		return nil, err
	}
	return s.summary, nil
}

func (s *fakeStore) GetDomainSummary(ctx context.Context, entity string, date models.Date) (*models.MetricRecord, error) {
	if err := s.record("domain"); err != nil {
		return nil, err
	}
	if s.domain == nil || s.domain.EntityID != entity {
		return nil, nil
	}
	return s.domain, nil
}

func (s *fakeStore) GetDomainErrors(ctx context.Context, entity string, date models.Date) ([]models.ErrorCount, error) {
	if err := s.record("errors"); err != nil {
		return nil, err
	}
	return s.errs, nil
}

func (s *fakeStore) GetCountrySummary(ctx context.Context, date models.Date) ([]models.DimensionedMetricRecord, error) {
	if err := s.record("country_summary"); err != nil {
		return nil, err
	}
	return s.country, nil
}

func (s *fakeStore) GetCountrySummaryByDate(ctx context.Context, country string, date models.Date) ([]models.DimensionedMetricRecord, error) {
	if err := s.record("country"); err != nil {
		return nil, err
	}
	return s.country, nil
}

func (s *fakeStore) GetDomainRange(ctx context.Context, entity string, r models.DateRange) ([]models.MetricRecord, error) {
	if err := s.record("domain_range"); err != nil {
		return nil, err
	}
	return s.summary[:1], nil
}

func (s *fakeStore) GetCountryRange(ctx context.Context, country string, r models.DateRange) ([]models.DimensionedMetricRecord, error) {
	if err := s.record("country_range"); err != nil {
		return nil, err
	}
	return s.country, nil
}

func (s *fakeStore) AllLastDates(ctx context.Context, entities []string) ([]models.LastDates, error) {
	if err := s.record("last_dates"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastArg = entities
	s.mu.Unlock()
	return s.last, nil
}

func (s *fakeStore) Ping(ctx context.Context) error {
	return s.pingErr
}

// fakeSync reports a fixed progress and refuses triggers while busy is set.
type fakeSync struct {
	busy     atomic.Bool
	triggers atomic.Int32
	progress models.SyncProgress
	report   *models.SyncReport
}

func (f *fakeSync) TriggerSync() (models.SyncProgress, error) {
	if f.busy.Load() {
		return f.progress, syncpkg.ErrSyncInProgress
	}
	f.triggers.Add(1)
	return f.progress, nil
}

func (f *fakeSync) Progress() models.SyncProgress  { return f.progress }
func (f *fakeSync) LastReport() *models.SyncReport { return f.report }
func (f *fakeSync) Entities() []string             { return []string{"a.com", "b.com"} }

type testEnv struct {
	store  *fakeStore
	sync   *fakeSync
	cache  *cache.Tiered
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	syncCtl := &fakeSync{progress: models.IdleProgress()}
	tiered := cache.NewTiered(context.Background(), cache.NewLocal(time.Hour, 0, 0), nil, cache.Options{})
	t.Cleanup(tiered.Close)

	mw, err := auth.NewMiddleware(&config.SecurityConfig{AuthMode: auth.AuthModeNone})
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true

	handler := NewHandler(store, syncCtl, tiered, WithVersion("test"))
	return &testEnv{
		store:  store,
		sync:   syncCtl,
		cache:  tiered,
		server: NewRouter(handler, mw, cfg).Setup(),
	}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// decodeEnvelope decodes an APIResponse, keeping data raw for a second decode.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (APIResponse, json.RawMessage) {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
		Meta    *APIMeta        `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return APIResponse{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}, raw.Data
}

var errBoom = errors.New("boom")
