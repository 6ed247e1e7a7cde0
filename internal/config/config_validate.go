// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateProvider(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be 0 (auto) or positive")
	}
	return nil
}

// Worker budget bounds
const (
	minSyncWorkers = 1
	maxSyncWorkers = 200
	maxLagDays     = 30
)

// validateSync validates synchronization configuration
func (c *Config) validateSync() error {
	if err := c.validateSyncEntities(); err != nil {
		return err
	}
	if c.Sync.LagDays < 0 || c.Sync.LagDays > maxLagDays {
		return fmt.Errorf("SYNC_LAG_DAYS must be between 0 and %d", maxLagDays)
	}
	if _, err := time.Parse("2006-01-02", c.Sync.Epoch); err != nil {
		return fmt.Errorf("SYNC_EPOCH must be a date in YYYY-MM-DD format: %w", err)
	}
	if c.Sync.Workers < minSyncWorkers || c.Sync.Workers > maxSyncWorkers {
		return fmt.Errorf("MAX_WORKERS must be between %d and %d", minSyncWorkers, maxSyncWorkers)
	}
	if c.Sync.FetchTimeout <= 0 {
		return fmt.Errorf("SYNC_FETCH_TIMEOUT must be positive")
	}
	return c.validateScheduleHours()
}

// validateSyncEntities rejects entities that are URLs rather than bare domains
func (c *Config) validateSyncEntities() error {
	seen := make(map[string]bool, len(c.Sync.Entities))
	for _, entity := range c.Sync.Entities {
		if entity == "" {
			return fmt.Errorf("GSC_DOMAINS contains an empty entry")
		}
		if strings.Contains(entity, "://") || strings.Contains(entity, "/") {
			return fmt.Errorf("GSC_DOMAINS entry %q must be a bare domain such as example.com", entity)
		}
		if seen[entity] {
			return fmt.Errorf("GSC_DOMAINS contains duplicate entry %q", entity)
		}
		seen[entity] = true
	}
	return nil
}

// validateScheduleHours validates the UTC run hours
func (c *Config) validateScheduleHours() error {
	if c.Sync.Enabled && len(c.Sync.ScheduleHours) == 0 {
		return fmt.Errorf("SYNC_SCHEDULE_HOURS must list at least one hour when sync is enabled")
	}
	for _, h := range c.Sync.ScheduleHours {
		if h < 0 || h > 23 {
			return fmt.Errorf("SYNC_SCHEDULE_HOURS values must be between 0 and 23, got %d", h)
		}
	}
	return nil
}

// validSearchTypes defines the Search Analytics search types
var validSearchTypes = map[string]bool{
	"web":      true,
	"image":    true,
	"video":    true,
	"news":     true,
	"discover": true,
}

// validateProvider validates Search Console configuration
func (c *Config) validateProvider() error {
	if !validSearchTypes[c.Provider.SearchType] {
		return fmt.Errorf("GSC_SEARCH_TYPE must be one of: web, image, video, news, discover")
	}
	if c.Provider.RowLimit < 1 || c.Provider.RowLimit > 25000 {
		return fmt.Errorf("GSC_ROW_LIMIT must be between 1 and 25000")
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return fmt.Errorf("GSC_REQUESTS_PER_SEC must be positive")
	}
	if c.Provider.Burst < 1 {
		return fmt.Errorf("GSC_BURST must be at least 1")
	}
	if c.Provider.Endpoint != "" {
		if err := validateHTTPURL(c.Provider.Endpoint, "GSC_ENDPOINT"); err != nil {
			return fmt.Errorf("GSC_ENDPOINT is invalid: %w", err)
		}
	}
	if len(c.Sync.Entities) > 0 && c.Provider.ClientSecretFile == "" {
		return fmt.Errorf("GSC_CLIENT_SECRET_FILE is required when GSC_DOMAINS is set")
	}
	return nil
}

// validateCache validates response cache configuration
func (c *Config) validateCache() error {
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.LocalCleanupInterval <= 0 {
		return fmt.Errorf("CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.Cache.LocalMaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	if !c.Cache.RemoteEnabled {
		return nil
	}
	if c.Cache.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when CACHE_REMOTE_ENABLED=true")
	}
	if c.Cache.RedisDB < 0 || c.Cache.RedisDB > 15 {
		return fmt.Errorf("REDIS_DB must be between 0 and 15")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateAuthMode(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if c.Security.AuthMode == "basic" {
		return c.validateAdminCredentials()
	}
	return nil
}

// validateCORS rejects wildcard CORS in production with authentication enabled
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Either set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = map[string]bool{
	"none":  true,
	"basic": true,
}

// validateAuthMode checks if auth mode is valid
func (c *Config) validateAuthMode() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, basic")
	}

	// Refuse to start without authentication in production
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Either set AUTH_MODE=basic or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// MinPasswordLength is the shortest admin password accepted for basic auth
const MinPasswordLength = 8

// validateAdminCredentials validates admin username and password for basic auth
func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is basic")
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is basic")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if len(c.Security.AdminPassword) < MinPasswordLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", MinPasswordLength)
	}
	if strings.EqualFold(c.Security.AdminPassword, c.Security.AdminUsername) {
		return fmt.Errorf("ADMIN_PASSWORD must not match ADMIN_USERNAME")
	}
	return nil
}

// validateNotify validates Telegram settings when notifications are enabled
func (c *Config) validateNotify() error {
	if !c.Notify.TelegramEnabled {
		return nil
	}
	if c.Notify.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED=true")
	}
	if c.Notify.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_ENABLED=true")
	}
	if err := validateHTTPURL(c.Notify.TelegramAPIURL, "TELEGRAM_API_URL"); err != nil {
		return fmt.Errorf("TELEGRAM_API_URL is invalid: %w", err)
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
}

// containsPlaceholder checks if a value contains common placeholder patterns
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}

// validateHTTPURL requires an absolute http(s) URL with a host and no query
// string. field is the env var name reported in the error.
func validateHTTPURL(raw, field string) error {
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return fmt.Errorf("%s: %w", field, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%s must use http or https, got %q", field, u.Scheme)
	case u.Host == "":
		return fmt.Errorf("%s is missing a host", field)
	case u.RawQuery != "":
		return fmt.Errorf("%s must not carry a query string", field)
	}
	return nil
}
