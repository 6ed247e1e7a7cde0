// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/gscstats/internal/cache"
	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/gsc"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/notify"
	"github.com/tomtom215/gscstats/internal/sync"
)

// progressStores bundles the progress tracker with its persistence.
type progressStores struct {
	Tracker *sync.ProgressTracker
	Ledger  sync.FailureLedger
	Badger  *sync.BadgerStore // nil when progress is kept in memory
}

// Close closes the badger store if one was opened.
func (p *progressStores) Close() {
	if p.Badger == nil {
		return
	}
	if err := p.Badger.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing progress store")
	}
}

// initProgress opens the badger store at cfg.BadgerPath. An empty path keeps
// the snapshot and failure ledger in memory.
func initProgress(cfg *config.ProgressConfig) (*progressStores, error) {
	if cfg.BadgerPath == "" {
		mem := sync.NewMemoryStore()
		logging.Info().Msg("Sync progress kept in memory (PROGRESS_BADGER_PATH empty)")
		return &progressStores{Tracker: sync.NewProgressTracker(mem), Ledger: mem}, nil
	}

	store, err := sync.OpenBadgerStore(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("path", cfg.BadgerPath).Msg("Sync progress store opened")
	return &progressStores{
		Tracker: sync.NewProgressTracker(store),
		Ledger:  store,
		Badger:  store,
	}, nil
}

// initProvider builds the Search Console client behind the circuit breaker.
// With no domains configured nothing is ever fetched, so no credentials are
// loaded and the provider is nil.
func initProvider(ctx context.Context, cfg *config.Config) (sync.MetricsProvider, error) {
	if len(cfg.Sync.Entities) == 0 {
		logging.Warn().Msg("No domains configured (GSC_DOMAINS), sync runs will have nothing to fetch")
		return nil, nil
	}

	opts, err := gsc.ClientOptions(ctx, &cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	client, err := gsc.NewClient(ctx, &cfg.Provider, cfg.Sync.FetchTimeout, opts...)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("search_type", cfg.Provider.SearchType).
		Float64("requests_per_second", cfg.Provider.RequestsPerSecond).
		Int("burst", cfg.Provider.Burst).
		Msg("Search Console client initialized")
	return gsc.NewCircuitBreakerClient(client), nil
}

// responseCache owns the tiered cache and the Redis client behind it.
type responseCache struct {
	Tiered *cache.Tiered
	redis  *cache.RedisStore
}

// Close stops the local tier and closes the Redis client.
func (c *responseCache) Close() {
	c.Tiered.Close()
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}
}

// initCache builds the local tier and, when enabled, the Redis tier. An
// unreachable Redis leaves the cache local-only.
func initCache(ctx context.Context, cfg *config.CacheConfig) *responseCache {
	local := cache.NewLocal(cfg.DefaultTTL, cfg.LocalCleanupInterval, cfg.LocalMaxEntries)
	opts := cache.Options{
		KeyPrefix:   cfg.KeyPrefix,
		DefaultTTL:  cfg.DefaultTTL,
		PingTimeout: cfg.DialTimeout,
	}

	if !cfg.RemoteEnabled {
		logging.Info().Dur("ttl", cfg.DefaultTTL).Msg("Response cache is local only")
		return &responseCache{Tiered: cache.NewTiered(ctx, local, nil, opts)}
	}

	redisStore := cache.NewRedisStore(cfg)
	tiered := cache.NewTiered(ctx, local, redisStore, opts)
	logging.Info().
		Str("redis_addr", cfg.RedisAddr).
		Bool("remote_enabled", tiered.RemoteEnabled()).
		Dur("ttl", cfg.DefaultTTL).
		Msg("Response cache initialized")
	return &responseCache{Tiered: tiered, redis: redisStore}
}

// initNotifier returns the Telegram notifier, or nil when it is disabled or
// misconfigured.
func initNotifier(cfg *config.NotifyConfig) sync.Notifier {
	if !cfg.TelegramEnabled {
		return nil
	}
	notifier, err := notify.NewTelegramNotifier(cfg)
	if err != nil {
		logging.Warn().Err(err).Msg("Telegram notifier disabled")
		return nil
	}
	logging.Info().
		Str("bot_token", logging.SanitizeToken(cfg.TelegramBotToken)).
		Str("chat_id", cfg.TelegramChatID).
		Msg("Telegram notifier enabled")
	return notifier
}
