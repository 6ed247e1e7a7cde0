// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package services

import (
	"context"
	"fmt"
)

// StartStopManager matches *sync.Manager. Start launches the schedule loop
// and returns; Stop ends it and waits for a background run to finish.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SyncService turns the manager's Start/Stop pair into a blocking Serve.
//
//	tree.AddSyncService(services.NewSyncService(manager))
type SyncService struct {
	manager StartStopManager
}

func NewSyncService(manager StartStopManager) *SyncService {
	return &SyncService{manager: manager}
}

// Serve holds the manager running for the lifetime of ctx. Failing to start
// is returned as an error, and suture restarts the service after its backoff.
func (s *SyncService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("start sync manager: %w", err)
	}
	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("stop sync manager: %w", err)
	}
	return ctx.Err()
}

func (s *SyncService) String() string { return "sync-manager" }
