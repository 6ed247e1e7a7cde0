// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/gscstats/internal/api"
	"github.com/tomtom215/gscstats/internal/auth"
	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/database"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/supervisor"
	"github.com/tomtom215/gscstats/internal/supervisor/services"
	"github.com/tomtom215/gscstats/internal/sync"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// manualRunDrainTimeout bounds the wait for an API-triggered run at shutdown
// when the scheduler is disabled.
const manualRunDrainTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", version).
		Int("domains", len(cfg.Sync.Entities)).
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("Starting GSCStats with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	progress, err := initProgress(&cfg.Progress)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open progress store")
	}
	defer progress.Close()

	provider, err := initProvider(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize Search Console client")
	}

	responseCache := initCache(ctx, &cfg.Cache)
	defer responseCache.Close()

	managerOpts := []sync.Option{
		sync.WithInvalidator(responseCache.Tiered),
		sync.WithFailureLedger(progress.Ledger),
	}
	if notifier := initNotifier(&cfg.Notify); notifier != nil {
		managerOpts = append(managerOpts, sync.WithNotifier(notifier))
	}
	manager := sync.NewManager(sync.ManagerConfigFrom(&cfg.Sync), db, provider, progress.Tracker, managerOpts...)

	authMiddleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	if authMiddleware.Mode() == auth.AuthModeBasic {
		logging.Info().Str("username", logging.SanitizeUsername(cfg.Security.AdminUsername)).Msg("Basic authentication enabled")
	} else {
		logging.Warn().Msg("Authentication disabled (AUTH_MODE=none)")
	}

	handler := api.NewHandler(db, manager, responseCache.Tiered,
		api.WithCacheTTL(cfg.Cache.DefaultTTL),
		api.WithVersion(version),
	)
	router := api.NewRouter(handler, authMiddleware, api.ChiMiddlewareConfigFrom(&cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if progress.Badger != nil {
		tree.AddStorageService(services.NewProgressGCService(progress.Badger, services.DefaultGCInterval, services.DefaultGCRatio))
	}
	if cfg.Sync.Enabled {
		tree.AddSyncService(services.NewSyncService(manager))
		logging.Info().Ints("hours_utc", cfg.Sync.ScheduleHours).Msg("Sync manager added to supervisor tree")
	} else {
		logging.Info().Msg("Scheduled sync disabled, runs start only from the API")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, services.DefaultShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// Without the sync service nothing stops the manager, so a run started
	// from the API may still be writing.
	if !cfg.Sync.Enabled && !waitTimeout(manager.Wait, manualRunDrainTimeout) {
		logging.Warn().Dur("timeout", manualRunDrainTimeout).Msg("Manual sync run still active at shutdown")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// waitTimeout runs wait in a goroutine and reports whether it returned
// within d.
func waitTimeout(wait func(), d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}
