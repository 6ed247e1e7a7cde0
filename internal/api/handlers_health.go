// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/gscstats/internal/models"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status            string             `json:"status"` // ok or degraded
	Message           string             `json:"message"`
	Version           string             `json:"version"`
	DatabaseConnected bool               `json:"database_connected"`
	RemoteCache       bool               `json:"remote_cache"`
	SyncPhase         models.SyncPhase   `json:"sync_phase"`
	LastReport        *models.SyncReport `json:"last_report,omitempty"`
	Uptime            float64            `json:"uptime_seconds"`
}

// Health handles GET /api/health. It needs no credentials and always answers
// 200 so probes can tell a degraded process from a dead one.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbConnected := h.store != nil && h.store.Ping(ctx) == nil

	status, message := "ok", "API is healthy"
	if !dbConnected {
		status, message = "degraded", "Database unreachable"
	}

	health := HealthStatus{
		Status:            status,
		Message:           message,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		RemoteCache:       h.cache != nil && h.cache.RemoteEnabled(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.sync != nil {
		health.SyncPhase = h.sync.Progress().Phase
		health.LastReport = h.sync.LastReport()
	}

	NewResponseWriter(w, r).Success(health)
}
