// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

// Cache key prefixes whose entries depend on each store. last_dates reads both.
var (
	PrimaryCachePatterns     = []string{"summary:*", "domain:*", "domain_range:*", "last_dates:*"}
	DimensionedCachePatterns = []string{"country:*", "country_range:*", "last_dates:*"}
)

// CachePatterns returns the invalidation patterns for kind.
func CachePatterns(kind models.SyncKind) []string {
	if kind == models.KindDimensioned {
		return DimensionedCachePatterns
	}
	return PrimaryCachePatterns
}

// ManagerConfig is the sync configuration in engine terms.
type ManagerConfig struct {
	Entities      []string
	LagDays       int
	Epoch         models.Date
	Workers       int
	FetchTimeout  time.Duration
	ScheduleHours []int
	RunOnStartup  bool
}

// ManagerConfigFrom converts the loaded configuration. An unparsable epoch
// falls back to DefaultEpoch.
func ManagerConfigFrom(cfg *config.SyncConfig) ManagerConfig {
	epoch := DefaultEpoch
	if t := cfg.EpochTime(); !t.IsZero() {
		epoch = models.DateOf(t)
	}
	return ManagerConfig{
		Entities:      append([]string{}, cfg.Entities...),
		LagDays:       cfg.LagDays,
		Epoch:         epoch,
		Workers:       cfg.Workers,
		FetchTimeout:  cfg.FetchTimeout,
		ScheduleHours: append([]int{}, cfg.ScheduleHours...),
		RunOnStartup:  cfg.RunOnStartup,
	}
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithInvalidator sets the cache invalidated after each phase that persisted data.
func WithInvalidator(inv Invalidator) Option {
	return func(m *Manager) { m.cache = inv }
}

// WithNotifier sets the run summary notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithFailureLedger sets where failed dates are remembered between runs.
func WithFailureLedger(l FailureLedger) Option {
	return func(m *Manager) { m.ledger = l }
}

// WithClock overrides time.Now for the resolver and scheduler loop.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager runs incremental syncs: resolve the missing range per domain,
// fetch and merge under the shared worker bound, invalidate dependent cache
// entries, and report.
type Manager struct {
	cfg       ManagerConfig
	store     Store
	provider  MetricsProvider
	progress  *ProgressTracker
	resolver  *Resolver
	scheduler *Scheduler

	cache    Invalidator
	notifier Notifier
	ledger   FailureLedger
	now      func() time.Time

	mu         sync.RWMutex
	running    bool
	stopChan   chan struct{}
	wg         sync.WaitGroup // scheduler loop
	runWG      sync.WaitGroup // background runs
	runCtx     context.Context
	cancelRuns context.CancelFunc
	lastReport *models.SyncReport
}

// NewManager creates a manager. progress may be nil for a fresh in-memory tracker.
func NewManager(cfg ManagerConfig, store Store, provider MetricsProvider, progress *ProgressTracker, opts ...Option) *Manager {
	if progress == nil {
		progress = NewProgressTracker(nil)
	}
	if cfg.LagDays < 0 {
		cfg.LagDays = DefaultLagDays
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		provider: provider,
		progress: progress,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.resolver = NewResolver(cfg.Epoch, cfg.LagDays, m.now)
	m.scheduler = NewScheduler(cfg.Workers, cfg.FetchTimeout)
	m.runCtx, m.cancelRuns = context.WithCancel(context.Background())

	logging.Info().
		Int("domains", len(cfg.Entities)).
		Int("lag_days", cfg.LagDays).
		Str("epoch", m.resolver.epoch.String()).
		Int("workers", m.scheduler.Workers()).
		Dur("fetch_timeout", cfg.FetchTimeout).
		Ints("schedule_hours", cfg.ScheduleHours).
		Msg("Sync manager config loaded")

	return m
}

// Progress returns the current progress snapshot.
func (m *Manager) Progress() models.SyncProgress {
	return m.progress.Snapshot()
}

// LastReport returns the report of the last finished run, or nil.
func (m *Manager) LastReport() *models.SyncReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastReport == nil {
		return nil
	}
	r := *m.lastReport
	r.Errors = append([]string{}, m.lastReport.Errors...)
	return &r
}

// Entities returns the configured domains.
func (m *Manager) Entities() []string {
	return append([]string{}, m.cfg.Entities...)
}

// Start begins the twice-daily schedule loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	logging.Info().Ints("hours_utc", m.cfg.ScheduleHours).Msg("Starting sync scheduler")

	m.wg.Add(1)
	go m.scheduleLoop(ctx, stop)
	return nil
}

// Stop ends the schedule loop, cancels any background run and waits for it.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()

	m.cancelRuns()
	m.runWG.Wait()

	// Fresh run context so a restarted manager can run again
	m.mu.Lock()
	m.runCtx, m.cancelRuns = context.WithCancel(context.Background())
	m.mu.Unlock()

	logging.Info().Msg("Sync manager stopped")
	return nil
}

func (m *Manager) scheduleLoop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	if m.cfg.RunOnStartup {
		m.triggerScheduled()
	}

	for {
		next := NextRun(m.now(), m.cfg.ScheduleHours)
		wait := next.Sub(m.now())
		logging.Debug().Time("next_run", next).Dur("wait", wait).Msg("Next scheduled sync")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			m.triggerScheduled()
		}
	}
}

func (m *Manager) triggerScheduled() {
	if _, err := m.TriggerSync(); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			logging.Info().Msg("Scheduled sync skipped: a run is already active")
			return
		}
		logging.Error().Err(err).Msg("Scheduled sync failed to start")
	}
}

// TriggerSync starts a run in the background and returns immediately with
// the new snapshot. While a run is active it starts nothing and returns the
// active snapshot with ErrSyncInProgress. The single-flight slot is claimed
// before the goroutine is spawned.
func (m *Manager) TriggerSync() (models.SyncProgress, error) {
	snapshot, ok := m.progress.TryBegin()
	if !ok {
		return snapshot, ErrSyncInProgress
	}

	m.mu.RLock()
	ctx := m.runCtx
	m.mu.RUnlock()

	m.runWG.Add(1)
	go func() {
		defer m.runWG.Done()
		ctx := logging.ContextWithNewCorrelationID(ctx)
		if _, err := m.execute(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Sync run failed")
		}
	}()
	return snapshot, nil
}

// RunSync runs both phases synchronously. It returns ErrSyncInProgress when
// another run holds the slot.
func (m *Manager) RunSync(ctx context.Context) (models.SyncReport, error) {
	if _, ok := m.progress.TryBegin(); !ok {
		return models.SyncReport{}, ErrSyncInProgress
	}
	return m.execute(ctx)
}

// Wait blocks until background runs started by TriggerSync have finished.
func (m *Manager) Wait() {
	m.runWG.Wait()
}

// execute runs the primary phase then the country phase. The caller owns the
// single-flight slot.
func (m *Manager) execute(ctx context.Context) (models.SyncReport, error) {
	start := time.Now()
	metrics.SyncRunning.Set(1)
	logger := logging.Ctx(ctx)
	logger.Info().Int("domains", len(m.cfg.Entities)).Msg("Sync run started")

	report := models.SyncReport{Kind: models.KindPrimary, Errors: []string{}}
	var fatal error
	dispatched := false
	for _, kind := range []models.SyncKind{models.KindPrimary, models.KindDimensioned} {
		ranges, err := m.resolveAll(ctx, kind)
		if err != nil {
			err = fmt.Errorf("resolve %s ranges: %w", kind, err)
			m.progress.AddError(err.Error())
			if !dispatched {
				fatal = err
				break
			}
			// Jobs already ran, so the run completes with the phase skipped
			report.Errors = append(report.Errors, err.Error())
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("Skipping sync phase")
			continue
		}
		items := WorkItems(m.cfg.Entities, ranges)
		dispatched = dispatched || len(items) > 0
		report.Merge(m.runPhase(ctx, kind, items, true))
	}

	phase := models.PhaseCompleted
	if fatal != nil {
		phase = models.PhaseFailed
	}
	final := m.progress.Finish(phase)
	metrics.RecordSyncRun(fatal)
	m.finish(ctx, final, report)

	logger.Info().
		Str("phase", string(final.Phase)).
		Int("attempted", report.Attempted).
		Int("persisted", report.Persisted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Sync run finished")

	return report, fatal
}

// RunRange backfills every configured domain over r for kind, bypassing the
// resolver. It claims the same single-flight slot as a normal run.
func (m *Manager) RunRange(ctx context.Context, kind models.SyncKind, r models.DateRange) (models.SyncReport, error) {
	if r.Len() == 0 {
		return models.SyncReport{Kind: kind, Errors: []string{}}, fmt.Errorf("empty date range %s", r)
	}
	if _, ok := m.progress.TryBegin(); !ok {
		return models.SyncReport{}, ErrSyncInProgress
	}
	metrics.SyncRunning.Set(1)

	ranges := make(map[string]*models.DateRange, len(m.cfg.Entities))
	for _, entity := range m.cfg.Entities {
		rr := r
		ranges[entity] = &rr
	}
	report := m.runPhase(ctx, kind, WorkItems(m.cfg.Entities, ranges), false)

	final := m.progress.Finish(models.PhaseCompleted)
	metrics.RecordSyncRun(nil)
	m.finish(ctx, final, report)
	return report, nil
}

// resolveAll computes the missing range of each domain for kind.
func (m *Manager) resolveAll(ctx context.Context, kind models.SyncKind) (map[string]*models.DateRange, error) {
	lastDate := lastDateFunc(kind, m.store)
	ranges := make(map[string]*models.DateRange, len(m.cfg.Entities))

	for _, entity := range m.cfg.Entities {
		last, err := lastDate(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entity, err)
		}

		var earliestFailure *models.Date
		if m.ledger != nil {
			earliestFailure, err = m.ledger.EarliestFailure(kind, entity)
			if err != nil {
				logging.Warn().Err(err).Str("domain", entity).Msg("Failed to read failure ledger, using stored high-water-mark")
			}
		}

		r := m.resolver.Resolve(EffectiveHighWaterMark(last, earliestFailure))
		if r == nil {
			logging.Info().Str("kind", string(kind)).Str("domain", entity).Msg("Domain is up to date")
			continue
		}
		ranges[entity] = r
		logging.Debug().Str("kind", string(kind)).Str("domain", entity).Str("range", r.String()).Msg("Resolved missing range")
	}
	return ranges, nil
}

// runPhase runs one kind's items and invalidates the cache when anything was
// persisted. With settleLedger, domains that had no failure this phase have
// their ledger entry cleared.
func (m *Manager) runPhase(ctx context.Context, kind models.SyncKind, items []models.WorkItem, settleLedger bool) models.SyncReport {
	start := time.Now()
	ctx = logging.ContextWithSyncKind(ctx, string(kind))
	m.progress.BeginPhase(kind, items)

	job, err := JobFor(kind, m.provider, m.store)
	if err != nil {
		m.progress.AddError(err.Error())
		return models.SyncReport{Kind: kind, Errors: []string{err.Error()}}
	}

	obs := &phaseObserver{tracker: m.progress, kind: kind, ledger: m.ledger, failed: map[string]bool{}}
	report := m.scheduler.Run(ctx, kind, items, job, obs)
	metrics.RecordSyncPhase(string(kind), time.Since(start))

	if settleLedger && m.ledger != nil {
		for _, entity := range uniqueEntities(items) {
			if obs.hadFailure(entity) {
				continue
			}
			if err := m.ledger.ClearFailures(kind, entity); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("domain", entity).Msg("Failed to clear failure ledger")
			}
		}
	}

	if report.Persisted > 0 {
		m.invalidate(ctx, kind)
	}

	logging.Ctx(ctx).Info().
		Int("attempted", report.Attempted).
		Int("persisted", report.Persisted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Sync phase finished")
	return report
}

func (m *Manager) invalidate(ctx context.Context, kind models.SyncKind) {
	if m.cache == nil {
		return
	}
	for _, pattern := range CachePatterns(kind) {
		if !m.cache.Invalidate(ctx, pattern) {
			logging.Warn().Str("pattern", pattern).Msg("Cache invalidation failed on both tiers")
		}
	}
}

func (m *Manager) finish(ctx context.Context, final models.SyncProgress, report models.SyncReport) {
	m.mu.Lock()
	r := report
	m.lastReport = &r
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	// The run context may be canceled on shutdown; the summary still goes out.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := m.notifier.NotifySyncFinished(nctx, final, report); err != nil {
		logging.Warn().Err(err).Msg("Failed to send sync notification")
	}
}

// phaseObserver forwards to the progress tracker and records failures in the ledger.
type phaseObserver struct {
	tracker *ProgressTracker
	kind    models.SyncKind
	ledger  FailureLedger

	mu     sync.Mutex
	failed map[string]bool
}

func (o *phaseObserver) JobStarted(item models.WorkItem) {
	o.tracker.JobStarted(item)
}

func (o *phaseObserver) JobFinished(item models.WorkItem, outcome Outcome, err error) {
	if outcome == OutcomeFailed {
		metrics.RecordSyncError(string(o.kind), ClassifyError(err))

		o.mu.Lock()
		o.failed[item.EntityID] = true
		o.mu.Unlock()

		if o.ledger != nil {
			if lerr := o.ledger.RecordFailure(o.kind, item.EntityID, item.Date); lerr != nil {
				logging.Warn().Err(lerr).Str("domain", item.EntityID).Msg("Failed to record failure in ledger")
			}
		}
	}
	o.tracker.JobFinished(item, outcome, err)
}

func (o *phaseObserver) hadFailure(entity string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failed[entity]
}

func uniqueEntities(items []models.WorkItem) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range items {
		if !seen[item.EntityID] {
			seen[item.EntityID] = true
			out = append(out, item.EntityID)
		}
	}
	return out
}
