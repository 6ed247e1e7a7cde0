// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

// Command backfill refetches a fixed date range for every configured domain,
// overwriting stored rows, and creates the OAuth token the server uses.
//
// Usage:
//
//	backfill -authorize                                  # store a new OAuth token
//	backfill -start 2024-01-01 -end 2024-03-31           # primary metrics
//	backfill -start 2024-01-01 -end 2024-03-31 -kind country
//
// Configuration is read the same way as the server (CONFIG_PATH and
// environment). DuckDB allows one writer, so stop the server first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/gscstats/internal/cache"
	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/database"
	"github.com/tomtom215/gscstats/internal/gsc"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
	"github.com/tomtom215/gscstats/internal/sync"
)

// options are the parsed command line flags.
type options struct {
	authorize bool
	kind      models.SyncKind
	dates     models.DateRange
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(stderr)
	authorize := fs.Bool("authorize", false, "run the OAuth consent flow and store the token")
	start := fs.String("start", "", "first date to fetch (YYYY-MM-DD)")
	end := fs.String("end", "", "last date to fetch, inclusive (YYYY-MM-DD)")
	kind := fs.String("kind", string(models.KindPrimary), "dataset to backfill: primary or country")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := &options{authorize: *authorize}
	if opts.authorize {
		return opts, nil
	}

	switch models.SyncKind(*kind) {
	case models.KindPrimary, models.KindDimensioned:
		opts.kind = models.SyncKind(*kind)
	default:
		return nil, fmt.Errorf("-kind must be primary or country, got %q", *kind)
	}

	if *start == "" || *end == "" {
		return nil, errors.New("-start and -end are required")
	}
	s, err := models.ParseDate(*start)
	if err != nil {
		return nil, fmt.Errorf("-start: %w", err)
	}
	e, err := models.ParseDate(*end)
	if err != nil {
		return nil, fmt.Errorf("-end: %w", err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("-end %s is before -start %s", e, s)
	}
	opts.dates = models.DateRange{Start: s, End: e}
	return opts, nil
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "backfill:", err)
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		logging.Error().Err(err).Msg("Backfill failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts *options) error {
	if opts.authorize {
		return authorize(ctx, &cfg.Provider)
	}
	if len(cfg.Sync.Entities) == 0 {
		return errors.New("no domains configured (GSC_DOMAINS)")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	clientOpts, err := gsc.ClientOptions(ctx, &cfg.Provider)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	client, err := gsc.NewClient(ctx, &cfg.Provider, cfg.Sync.FetchTimeout, clientOpts...)
	if err != nil {
		return err
	}

	var managerOpts []sync.Option
	ledger, err := openLedger(&cfg.Progress)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
		managerOpts = append(managerOpts, sync.WithFailureLedger(ledger))
	}

	// Only the shared tier matters here; this process's local tier dies with it.
	if cfg.Cache.RemoteEnabled {
		redisStore := cache.NewRedisStore(&cfg.Cache)
		defer redisStore.Close()
		tiered := cache.NewTiered(ctx, nil, redisStore, cache.Options{
			KeyPrefix:   cfg.Cache.KeyPrefix,
			DefaultTTL:  cfg.Cache.DefaultTTL,
			PingTimeout: cfg.Cache.DialTimeout,
		})
		defer tiered.Close()
		managerOpts = append(managerOpts, sync.WithInvalidator(tiered))
	}

	manager := sync.NewManager(sync.ManagerConfigFrom(&cfg.Sync), db, gsc.NewCircuitBreakerClient(client), nil, managerOpts...)

	logging.Info().
		Str("kind", string(opts.kind)).
		Str("range", opts.dates.String()).
		Int("days", opts.dates.Len()).
		Int("domains", len(cfg.Sync.Entities)).
		Msg("Backfill started")

	report, err := manager.RunRange(ctx, opts.kind, opts.dates)
	if err != nil {
		return err
	}

	event := logging.Info()
	if report.Failed > 0 {
		event = logging.Warn().Strs("errors", report.Errors)
	}
	event.
		Int("attempted", report.Attempted).
		Int("persisted", report.Persisted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Backfill finished")

	if counts, err := db.GetRecordCounts(ctx); err == nil {
		logging.Info().
			Int64("domain_summaries", counts.DomainSummaries).
			Int64("domain_errors", counts.DomainErrors).
			Int64("country_summaries", counts.CountrySummaries).
			Msg("Stored record counts")
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", report.Failed, report.Attempted)
	}
	return nil
}

// openLedger opens the server's failure ledger so dates that fail here are
// retried by the next scheduled sync. RunRange records failures but never
// clears them. An empty path means the server keeps no ledger either.
func openLedger(cfg *config.ProgressConfig) (*sync.BadgerStore, error) {
	if cfg.BadgerPath == "" {
		return nil, nil
	}
	store, err := sync.OpenBadgerStore(cfg.BadgerPath)
	if err != nil {
		return nil, fmt.Errorf("open failure ledger (is the server still running?): %w", err)
	}
	return store, nil
}

func authorize(ctx context.Context, cfg *config.ProviderConfig) error {
	oauthCfg, err := gsc.LoadOAuthConfig(cfg.ClientSecretFile)
	if err != nil {
		return err
	}
	if _, err := gsc.Authorize(ctx, oauthCfg, os.Stdin, os.Stdout, cfg.TokenFile); err != nil {
		return err
	}
	logging.Info().Str("token_file", cfg.TokenFile).Msg("OAuth token stored")
	return nil
}
