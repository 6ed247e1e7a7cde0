// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package models

import "time"

// SyncPhase is the lifecycle state of the process-wide sync run.
type SyncPhase string

const (
	PhaseIdle               SyncPhase = "idle"
	PhaseRunningPrimary     SyncPhase = "running_primary"
	PhaseRunningDimensioned SyncPhase = "running_dimensioned"
	PhaseCompleted          SyncPhase = "completed"
	PhaseFailed             SyncPhase = "failed"
)

// IsRunning reports whether p is one of the running_* phases.
func (p SyncPhase) IsRunning() bool {
	return p == PhaseRunningPrimary || p == PhaseRunningDimensioned
}

// SyncKind selects which store a job writes to.
type SyncKind string

const (
	KindPrimary     SyncKind = "primary"
	KindDimensioned SyncKind = "country"
)

// RunningPhase maps a kind to the phase shown while it runs.
func (k SyncKind) RunningPhase() SyncPhase {
	if k == KindDimensioned {
		return PhaseRunningDimensioned
	}
	return PhaseRunningPrimary
}

// SyncProgress is a point-in-time snapshot of the sync run.
type SyncProgress struct {
	Phase         SyncPhase  `json:"phase"`
	TotalEntities int        `json:"total_entities"`
	EntitiesDone  int        `json:"entities_done"`
	CurrentEntity string     `json:"current_entity"`
	CurrentDate   *Date      `json:"current_date"`
	Percent       int        `json:"percent"`
	Errors        []string   `json:"errors"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// IdleProgress is the snapshot before any run has started.
func IdleProgress() SyncProgress {
	return SyncProgress{Phase: PhaseIdle, Errors: []string{}}
}

// WorkItem is a single (entity, date) fetch+merge job.
type WorkItem struct {
	EntityID string
	Date     Date
}

// SyncReport summarizes one FetchScheduler run.
// Attempted == Persisted + Skipped + Failed.
type SyncReport struct {
	Kind      SyncKind `json:"kind"`
	Attempted int      `json:"attempted"`
	Persisted int      `json:"persisted"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Merge folds other into r, used when a run spans both phases.
func (r *SyncReport) Merge(other SyncReport) {
	r.Attempted += other.Attempted
	r.Persisted += other.Persisted
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}
