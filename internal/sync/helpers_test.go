// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/gscstats/internal/models"
)

// fakeProvider answers from callbacks; nil callbacks return one click per day.
type fakeProvider struct {
	mu           sync.Mutex
	primaryCalls int
	countryCalls int
	primary      func(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error)
	country      func(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error)
}

func (p *fakeProvider) FetchPrimary(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error) {
	p.mu.Lock()
	p.primaryCalls++
	p.mu.Unlock()
	if p.primary != nil {
		return p.primary(ctx, entity, date)
	}
	return models.NewDailyMetrics(models.MetricRecord{EntityID: entity, Date: date, Clicks: 1, Impressions: 10, CTR: 0.1, AvgPosition: 2}), nil
}

func (p *fakeProvider) FetchDimensioned(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error) {
	p.mu.Lock()
	p.countryCalls++
	p.mu.Unlock()
	if p.country != nil {
		return p.country(ctx, entity, date)
	}
	return []models.DimensionedMetricRecord{{EntityID: entity, Date: date, Dimension: "usa", Clicks: 1}}, nil
}

func (p *fakeProvider) calls() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primaryCalls, p.countryCalls
}

// memStore is an in-memory Store keyed like the DuckDB tables.
type memStore struct {
	mu          sync.Mutex
	primary     map[string]models.DailyMetrics
	country     map[string][]models.DimensionedMetricRecord
	failUpsert  func(entity string, date models.Date) error
	failLastDay error
	failCountry error // LastCountryDate only
}

func newMemStore() *memStore {
	return &memStore{
		primary: map[string]models.DailyMetrics{},
		country: map[string][]models.DimensionedMetricRecord{},
	}
}

func storeKey(entity string, date models.Date) string {
	return entity + "|" + date.String()
}

func (s *memStore) UpsertDailyMetrics(_ context.Context, dm *models.DailyMetrics) error {
	if s.failUpsert != nil {
		if err := s.failUpsert(dm.Record.EntityID, dm.Record.Date); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary[storeKey(dm.Record.EntityID, dm.Record.Date)] = *dm
	return nil
}

func (s *memStore) UpsertCountryMetrics(_ context.Context, entity string, date models.Date, rows []models.DimensionedMetricRecord) error {
	if s.failUpsert != nil {
		if err := s.failUpsert(entity, date); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.country[storeKey(entity, date)] = append([]models.DimensionedMetricRecord{}, rows...)
	return nil
}

func (s *memStore) lastDate(keys []string, entity string) *models.Date {
	var last *models.Date
	for _, k := range keys {
		if len(k) <= len(entity)+1 || k[:len(entity)+1] != entity+"|" {
			continue
		}
		d := models.MustParseDate(k[len(entity)+1:])
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last
}

func (s *memStore) LastMetricDate(_ context.Context, entity string) (*models.Date, error) {
	if s.failLastDay != nil {
		return nil, s.failLastDay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.primary))
	for k := range s.primary {
		keys = append(keys, k)
	}
	return s.lastDate(keys, entity), nil
}

func (s *memStore) LastCountryDate(_ context.Context, entity string) (*models.Date, error) {
	if s.failLastDay != nil {
		return nil, s.failLastDay
	}
	if s.failCountry != nil {
		return nil, s.failCountry
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.country))
	for k := range s.country {
		keys = append(keys, k)
	}
	return s.lastDate(keys, entity), nil
}

func (s *memStore) primaryRecord(entity, date string) (models.DailyMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dm, ok := s.primary[storeKey(entity, models.MustParseDate(date))]
	return dm, ok
}

func (s *memStore) primaryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.primary)
}

// recordingInvalidator collects invalidated patterns.
type recordingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, pattern string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
	return true
}

func (r *recordingInvalidator) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string{}, r.patterns...)
	sort.Strings(out)
	return out
}

// recordingNotifier captures the last notification.
type recordingNotifier struct {
	mu       sync.Mutex
	calls    int
	progress models.SyncProgress
	report   models.SyncReport
}

func (n *recordingNotifier) NotifySyncFinished(_ context.Context, p models.SyncProgress, r models.SyncReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.progress = p
	n.report = r
	return nil
}

func fixedClock(date string) func() time.Time {
	t := models.MustParseDate(date).Time().Add(9 * time.Hour)
	return func() time.Time { return t }
}
