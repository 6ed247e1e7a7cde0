// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/logging"
)

const (
	memoryPath        = ":memory:"
	defaultMaxMemory  = "1GB"
	checkpointTimeout = 30 * time.Second
)

// DB is the DuckDB-backed metrics store shared by the sync engine and the
// read API.
type DB struct {
	conn *sql.DB
	rows rowLocks
}

// New opens the database at cfg.Path (creating its directory) and applies
// the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg.Path != memoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.checkpointQuietly("schema initialization")
	return db, nil
}

// dsn builds the DuckDB connection string. Extension auto-install stays off
// so startup never reaches the network.
func dsn(cfg *config.DatabaseConfig) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = defaultMaxMemory
	}

	q := url.Values{}
	q.Set("access_mode", "read_write")
	q.Set("threads", strconv.Itoa(threads))
	q.Set("max_memory", maxMemory)
	q.Set("autoinstall_known_extensions", "false")
	q.Set("autoload_known_extensions", "false")
	return cfg.Path + "?" + q.Encode()
}

func (db *DB) checkpointQuietly(when string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Str("when", when).Msg("Database checkpoint failed")
	}
}

// Conn exposes the pool for ad-hoc queries in tests and tools.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close checkpoints and closes the pool. A failed checkpoint is only logged;
// DuckDB replays its WAL on the next open.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	db.checkpointQuietly("close")
	return db.conn.Close()
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// rowLocks serializes upserts of the same (table, domain, date) group. Two
// writers of different dates never share a mutex.
type rowLocks struct {
	m sync.Map // string -> *sync.Mutex
}

// lock blocks until the group is free and returns its unlock func.
func (l *rowLocks) lock(table, entity string, date fmt.Stringer) func() {
	v, _ := l.m.LoadOrStore(table+"|"+entity+"|"+date.String(), new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
