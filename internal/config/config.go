// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Data Source:
//     - Provider: Search Console credentials, row limits and request pacing
//     - Sync: Tracked entities, availability lag, worker budget and schedule
//
//  2. Infrastructure:
//     - Database: DuckDB configuration (path, memory, threads)
//     - Cache: Redis remote tier and the local in-process tier
//     - Progress: Badger directory for sync progress and the failure ledger
//     - Server: HTTP server configuration (port, host, timeout)
//
//  3. Security & Notifications:
//     - Security: Basic authentication, CORS and rate limiting
//     - Notify: Optional Telegram run summaries
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access from multiple goroutines.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Provider ProviderConfig `koanf:"provider"`
	Cache    CacheConfig    `koanf:"cache"`
	Progress ProgressConfig `koanf:"progress"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Notify   NotifyConfig   `koanf:"notify"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// SyncConfig holds incremental synchronization settings
type SyncConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Entities      []string      `koanf:"entities"`       // Tracked domains, e.g. example.com
	LagDays       int           `koanf:"lag_days"`       // Provider data for a date is final after this many days
	Epoch         string        `koanf:"epoch"`          // First date fetched for an entity with no history (YYYY-MM-DD)
	Workers       int           `koanf:"workers"`        // Concurrent fetch+merge jobs, shared by every run
	FetchTimeout  time.Duration `koanf:"fetch_timeout"`  // Per-call provider timeout
	ScheduleHours []int         `koanf:"schedule_hours"` // UTC hours at which a scheduled run starts
	RunOnStartup  bool          `koanf:"run_on_startup"`
}

// ProviderConfig holds Search Console API settings
type ProviderConfig struct {
	ClientSecretFile  string  `koanf:"client_secret_file"` // OAuth client JSON downloaded from the Cloud console
	TokenFile         string  `koanf:"token_file"`         // Stored OAuth token with a refresh token
	Endpoint          string  `koanf:"endpoint"`           // Optional API base URL override
	SearchType        string  `koanf:"search_type"`
	RowLimit          int64   `koanf:"row_limit"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	RemoteEnabled        bool          `koanf:"remote_enabled"`
	RedisAddr            string        `koanf:"redis_addr"`
	RedisPassword        string        `koanf:"redis_password"`
	RedisDB              int           `koanf:"redis_db"`
	DialTimeout          time.Duration `koanf:"dial_timeout"`
	KeyPrefix            string        `koanf:"key_prefix"` // Namespace prepended to every remote key
	DefaultTTL           time.Duration `koanf:"default_ttl"`
	LocalCleanupInterval time.Duration `koanf:"local_cleanup_interval"`
	LocalMaxEntries      int           `koanf:"local_max_entries"` // Least recently used entries are evicted past this
}

// ProgressConfig holds sync progress persistence settings
type ProgressConfig struct {
	BadgerPath string `koanf:"badger_path"` // Empty keeps progress in memory only
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// SecurityConfig holds authentication and request limiting settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // basic or none
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// NotifyConfig holds run summary notification settings
type NotifyConfig struct {
	TelegramEnabled  bool   `koanf:"telegram_enabled"`
	TelegramBotToken string `koanf:"telegram_bot_token"`
	TelegramChatID   string `koanf:"telegram_chat_id"`
	TelegramAPIURL   string `koanf:"telegram_api_url"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EpochTime parses the configured epoch date.
// Validate guarantees the value parses, so the zero time is only returned for
// configs that were never validated.
func (s SyncConfig) EpochTime() time.Time {
	t, err := time.Parse("2006-01-02", s.Epoch)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Load reads configuration from multiple sources in order of priority:
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH env var)
//  3. Environment variables
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
