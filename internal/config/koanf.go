// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are tried in order when CONFIG_PATH is unset or
// points at a missing file.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gscstats/config.yaml",
	"/etc/gscstats/config.yml",
}

// ConfigPathEnvVar names an explicit config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig is the bottom layer of LoadWithKoanf. Zero values are left
// out; Threads 0 means one per CPU.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/gscstats.duckdb",
			MaxMemory: "1GB",
		},
		Sync: SyncConfig{
			Enabled:       true,
			Entities:      []string{},
			LagDays:       2,
			Epoch:         "2024-01-01",
			Workers:       20,
			FetchTimeout:  60 * time.Second,
			ScheduleHours: []int{0, 12},
		},
		Provider: ProviderConfig{
			ClientSecretFile:  "/data/client_secret.json",
			TokenFile:         "/data/token.json",
			SearchType:        "web",
			RowLimit:          10000,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Cache: CacheConfig{
			RedisAddr:            "127.0.0.1:6379",
			DialTimeout:          2 * time.Second,
			DefaultTTL:           24 * time.Hour,
			LocalCleanupInterval: 5 * time.Minute,
			LocalMaxEntries:      10000,
		},
		Progress: ProgressConfig{
			BadgerPath: "/data/progress",
		},
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			AuthMode:        "basic",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Notify: NotifyConfig{
			TelegramAPIURL: "https://api.telegram.org",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf merges defaults, an optional YAML file and the environment,
// each layer overriding the one before, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := splitListValues(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findConfigFile returns "" when no candidate exists.
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" && fileExists(p) {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// listKeys hold lists. From the environment they arrive as one
// comma-separated string ("a.com, b.com").
var listKeys = []string{"sync.entities", "sync.schedule_hours", "security.cors_origins"}

func splitListValues(k *koanf.Koanf) error {
	for _, key := range listKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue // unset, or already a list from defaults or YAML
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		if err := k.Set(key, items); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// envMappings routes lower-cased env var names to koanf paths. Variables
// not listed are ignored.
var envMappings = map[string]string{
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"sync_enabled":        "sync.enabled",
	"gsc_domains":         "sync.entities",
	"sync_entities":       "sync.entities",
	"sync_lag_days":       "sync.lag_days",
	"sync_epoch":          "sync.epoch",
	"max_workers":         "sync.workers",
	"sync_workers":        "sync.workers",
	"sync_fetch_timeout":  "sync.fetch_timeout",
	"sync_schedule_hours": "sync.schedule_hours",
	"sync_on_startup":     "sync.run_on_startup",

	"gsc_client_secret_file": "provider.client_secret_file",
	"gsc_token_file":         "provider.token_file",
	"gsc_endpoint":           "provider.endpoint",
	"gsc_search_type":        "provider.search_type",
	"gsc_row_limit":          "provider.row_limit",
	"gsc_requests_per_sec":   "provider.requests_per_second",
	"gsc_burst":              "provider.burst",

	"cache_remote_enabled":   "cache.remote_enabled",
	"redis_addr":             "cache.redis_addr",
	"redis_password":         "cache.redis_password",
	"redis_db":               "cache.redis_db",
	"redis_dial_timeout":     "cache.dial_timeout",
	"cache_key_prefix":       "cache.key_prefix",
	"cache_ttl":              "cache.default_ttl",
	"cache_cleanup_interval": "cache.local_cleanup_interval",
	"cache_max_entries":      "cache.local_max_entries",

	"progress_badger_path": "progress.badger_path",

	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"auth_mode":           "security.auth_mode",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"telegram_enabled":   "notify.telegram_enabled",
	"telegram_bot_token": "notify.telegram_bot_token",
	"telegram_chat_id":   "notify.telegram_chat_id",
	"telegram_api_url":   "notify.telegram_api_url",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps GSC_DOMAINS to sync.entities, HTTP_PORT to
// server.port and so on. It returns "" for unknown variables, which koanf
// skips.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
