// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

//go:build integration

package testinfra

import (
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// SkipIfNoDocker skips t unless testcontainers reaches a healthy container
// runtime.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// CleanupContainer removes ctr when t finishes. A nil ctr is ignored.
func CleanupContainer(t *testing.T, ctr testcontainers.Container) {
	t.Helper()
	if ctr != nil {
		testcontainers.CleanupContainer(t, ctr)
	}
}
