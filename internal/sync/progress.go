// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package sync

import (
	"math"
	"sync"
	"time"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
)

// ProgressTracker is the process-wide sync status. Every mutation happens
// under the write lock, so Snapshot never observes a partial update.
type ProgressTracker struct {
	mu        sync.RWMutex
	state     models.SyncProgress
	remaining map[string]int // jobs left per domain in the current phase
	store     ProgressStore
	now       func() time.Time
}

// NewProgressTracker creates a tracker. When store holds a snapshot from a
// previous process it is restored; a snapshot left running is marked failed.
func NewProgressTracker(store ProgressStore) *ProgressTracker {
	p := &ProgressTracker{
		state:     models.IdleProgress(),
		remaining: map[string]int{},
		store:     store,
		now:       time.Now,
	}
	if store == nil {
		return p
	}

	prev, err := store.LoadProgress()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to load saved sync progress")
		return p
	}
	if prev == nil {
		return p
	}

	p.state = *prev
	if p.state.Errors == nil {
		p.state.Errors = []string{}
	}
	if p.state.Phase.IsRunning() {
		finished := p.now().UTC()
		p.state.Errors = append(p.state.Errors, "sync interrupted by restart during "+string(p.state.Phase))
		p.state.Phase = models.PhaseFailed
		p.state.FinishedAt = &finished
		p.state.CurrentEntity = ""
		p.state.CurrentDate = nil
		p.persistLocked()
	}
	return p
}

// TryBegin claims the single-flight slot. It returns the new snapshot and
// true when the caller now owns the run, or the active snapshot and false
// when a run is already in progress.
func (p *ProgressTracker) TryBegin() (models.SyncProgress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Phase.IsRunning() {
		return p.snapshotLocked(), false
	}

	started := p.now().UTC()
	p.state = models.SyncProgress{
		Phase:     models.PhaseRunningPrimary,
		Errors:    []string{},
		StartedAt: &started,
	}
	p.remaining = map[string]int{}
	p.persistLocked()
	return p.snapshotLocked(), true
}

// IsRunning reports whether a run currently owns the slot.
func (p *ProgressTracker) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.Phase.IsRunning()
}

// BeginPhase switches to kind's running phase and resets the per-domain
// counters for items. Domains with no items are not counted.
func (p *ProgressTracker) BeginPhase(kind models.SyncKind, items []models.WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remaining = make(map[string]int)
	for _, item := range items {
		p.remaining[item.EntityID]++
	}

	p.state.Phase = kind.RunningPhase()
	p.state.TotalEntities = len(p.remaining)
	p.state.EntitiesDone = 0
	p.state.CurrentEntity = ""
	p.state.CurrentDate = nil
	p.state.Percent = percent(0, p.state.TotalEntities)
	p.persistLocked()
}

// JobStarted implements Observer.
func (p *ProgressTracker) JobStarted(item models.WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := item.Date
	p.state.CurrentEntity = item.EntityID
	p.state.CurrentDate = &d
}

// JobFinished implements Observer. A domain counts as done when its last job
// finishes, whatever the outcome.
func (p *ProgressTracker) JobFinished(item models.WorkItem, outcome Outcome, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if left, ok := p.remaining[item.EntityID]; ok {
		left--
		if left <= 0 {
			delete(p.remaining, item.EntityID)
			p.state.EntitiesDone++
		} else {
			p.remaining[item.EntityID] = left
		}
	}
	p.state.Percent = percent(p.state.EntitiesDone, p.state.TotalEntities)

	if outcome == OutcomeFailed {
		p.state.Errors = append(p.state.Errors, FormatJobError(item, err))
	}
}

// AddError appends a run-level error message.
func (p *ProgressTracker) AddError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Errors = append(p.state.Errors, msg)
}

// Finish ends the run with phase (completed or failed) and releases the
// single-flight slot.
func (p *ProgressTracker) Finish(phase models.SyncPhase) models.SyncProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	finished := p.now().UTC()
	p.state.Phase = phase
	p.state.FinishedAt = &finished
	p.state.CurrentEntity = ""
	p.state.CurrentDate = nil
	if phase == models.PhaseCompleted {
		p.state.Percent = 100
	}
	p.remaining = map[string]int{}
	p.persistLocked()
	return p.snapshotLocked()
}

// Snapshot returns a copy of the current status.
func (p *ProgressTracker) Snapshot() models.SyncProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *ProgressTracker) snapshotLocked() models.SyncProgress {
	s := p.state
	s.Errors = append([]string{}, p.state.Errors...)
	if p.state.CurrentDate != nil {
		d := *p.state.CurrentDate
		s.CurrentDate = &d
	}
	if p.state.StartedAt != nil {
		t := *p.state.StartedAt
		s.StartedAt = &t
	}
	if p.state.FinishedAt != nil {
		t := *p.state.FinishedAt
		s.FinishedAt = &t
	}
	return s
}

func (p *ProgressTracker) persistLocked() {
	if p.store == nil {
		return
	}
	if err := p.store.SaveProgress(p.snapshotLocked()); err != nil {
		logging.Warn().Err(err).Msg("Failed to persist sync progress")
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
