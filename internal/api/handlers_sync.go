// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/gscstats/internal/auth"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/models"
	syncpkg "github.com/tomtom215/gscstats/internal/sync"
)

// UpdateDataResponse is the body of POST /api/update_data.
type UpdateDataResponse struct {
	Status   string               `json:"status"` // started or already_running
	Progress *models.SyncProgress `json:"progress,omitempty"`
}

// UpdateData handles POST /api/update_data. It starts a sync run in the
// background and answers 202, or 409 with the active snapshot when a run is
// already in flight.
func (h *Handler) UpdateData(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	logger := logging.Ctx(r.Context())

	snapshot, err := h.sync.TriggerSync()
	switch {
	case errors.Is(err, syncpkg.ErrSyncInProgress):
		logger.Info().Str("phase", string(snapshot.Phase)).Msg("Sync trigger rejected, run in progress")
		rw.SuccessWithStatus(http.StatusConflict, UpdateDataResponse{
			Status:   "already_running",
			Progress: &snapshot,
		})
	case err != nil:
		logger.Error().Err(err).Msg("Failed to start sync")
		rw.InternalError("Failed to start sync")
	default:
		logger.Info().Str("user", auth.UsernameFromContext(r.Context())).Msg("Sync triggered via API")
		rw.SuccessWithStatus(http.StatusAccepted, UpdateDataResponse{Status: "started"})
	}
}

// UpdateStatus handles GET /api/update_status. The body is the progress
// snapshot itself, not wrapped in the response envelope.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.sync.Progress())
}

// ClearCacheResponse is the body of POST /api/cache/clear.
type ClearCacheResponse struct {
	Success bool   `json:"success"`
	Pattern string `json:"pattern"`
}

// ClearCache handles POST /api/cache/clear?pattern=. An absent pattern
// clears everything.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req := CacheClearRequest{Pattern: r.URL.Query().Get("pattern")}
	if req.Pattern == "" {
		req.Pattern = "*"
	}
	if !validateRequest(rw, &req) {
		return
	}

	ok := h.cache.Invalidate(r.Context(), req.Pattern)
	logging.Ctx(r.Context()).Info().
		Str("pattern", req.Pattern).
		Bool("success", ok).
		Str("user", auth.UsernameFromContext(r.Context())).
		Msg("Cache clear requested")

	rw.Success(ClearCacheResponse{Success: ok, Pattern: req.Pattern})
}
