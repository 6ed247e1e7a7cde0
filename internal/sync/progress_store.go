// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	progressKey      = "progress:last"
	failureKeyPrefix = "failure:"
)

func failureKey(kind models.SyncKind, entity string) []byte {
	return []byte(failureKeyPrefix + string(kind) + ":" + entity)
}

// BadgerStore persists the progress snapshot and the failure ledger.
type BadgerStore struct {
	db *badger.DB
	mu sync.Mutex // serializes ledger read-modify-write
}

// OpenBadgerStore opens (or creates) the badger directory at path. An empty
// path opens an in-memory store.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(badgerLogger{}).WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// RunGC rewrites value log files until badger reports nothing left to
// reclaim. In-memory stores have no value log and return nil.
func (s *BadgerStore) RunGC(ratio float64) error {
	if s.db.Opts().InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// SaveProgress implements ProgressStore.
func (s *BadgerStore) SaveProgress(p models.SyncProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(progressKey), data)
	})
}

// LoadProgress implements ProgressStore. It returns (nil, nil) when nothing was saved.
func (s *BadgerStore) LoadProgress() (*models.SyncProgress, error) {
	var p models.SyncProgress
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(progressKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return &p, nil
}

// EarliestFailure implements FailureLedger.
func (s *BadgerStore) EarliestFailure(kind models.SyncKind, entity string) (*models.Date, error) {
	var d *models.Date
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		d, err = readFailure(txn, kind, entity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read failure ledger: %w", err)
	}
	return d, nil
}

// RecordFailure implements FailureLedger. Only an earlier date replaces the stored one.
func (s *BadgerStore) RecordFailure(kind models.SyncKind, entity string, date models.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := readFailure(txn, kind, entity)
		if err != nil {
			return err
		}
		if existing != nil && !date.Before(*existing) {
			return nil
		}
		return txn.Set(failureKey(kind, entity), []byte(date.String()))
	})
}

// ClearFailures implements FailureLedger.
func (s *BadgerStore) ClearFailures(kind models.SyncKind, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(failureKey(kind, entity))
	})
}

func readFailure(txn *badger.Txn, kind models.SyncKind, entity string) (*models.Date, error) {
	item, err := txn.Get(failureKey(kind, entity))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var d models.Date
	err = item.Value(func(val []byte) error {
		parsed, perr := models.ParseDate(string(val))
		d = parsed
		return perr
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MemoryStore is an in-process ProgressStore and FailureLedger for tests and
// for running without a progress directory.
type MemoryStore struct {
	mu       sync.Mutex
	progress *models.SyncProgress
	failures map[string]models.Date
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{failures: map[string]models.Date{}}
}

// SaveProgress implements ProgressStore.
func (m *MemoryStore) SaveProgress(p models.SyncProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = &p
	return nil
}

// LoadProgress implements ProgressStore.
func (m *MemoryStore) LoadProgress() (*models.SyncProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress == nil {
		return nil, nil
	}
	p := *m.progress
	return &p, nil
}

// EarliestFailure implements FailureLedger.
func (m *MemoryStore) EarliestFailure(kind models.SyncKind, entity string) (*models.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.failures[string(failureKey(kind, entity))]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// RecordFailure implements FailureLedger.
func (m *MemoryStore) RecordFailure(kind models.SyncKind, entity string, date models.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(failureKey(kind, entity))
	if existing, ok := m.failures[key]; ok && !date.Before(existing) {
		return nil
	}
	m.failures[key] = date
	return nil
}

// ClearFailures implements FailureLedger.
func (m *MemoryStore) ClearFailures(kind models.SyncKind, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, string(failureKey(kind, entity)))
	return nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Trace().Str("component", "badger").Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
