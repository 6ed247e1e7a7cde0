// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package config provides centralized configuration management for GSCStats.

Configuration is layered with Koanf v2: struct defaults first, then an optional
YAML file (CONFIG_PATH or one of DefaultConfigPaths), then environment
variables. Comma-separated environment values are split for slice fields
before unmarshaling, and Validate runs last.

# Environment Variables

Sync:
  - GSC_DOMAINS: Comma-separated tracked domains (example.com,example.org)
  - SYNC_LAG_DAYS: Provider availability lag in days (default: 2)
  - SYNC_EPOCH: First date for never-synced domains (default: 2024-01-01)
  - MAX_WORKERS: Concurrent fetch jobs (default: 20)
  - SYNC_SCHEDULE_HOURS: UTC run hours (default: 0,12)

Provider:
  - GSC_CLIENT_SECRET_FILE: OAuth client JSON
  - GSC_TOKEN_FILE: Stored OAuth token
  - GSC_ROW_LIMIT: Search Analytics row limit (default: 10000)

Cache:
  - CACHE_REMOTE_ENABLED: Use Redis as the shared tier (default: false)
  - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
  - CACHE_TTL: Default entry lifetime (default: 24h)

Server and Security:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8000)
  - AUTH_MODE: basic or none (default: basic)
  - ADMIN_USERNAME, ADMIN_PASSWORD
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW

Notifications:
  - TELEGRAM_ENABLED, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Thread Safety

Config is immutable after Load and safe for concurrent reads.
*/
package config
