// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/gscstats/internal/logging"
)

// ErrStorage wraps every failed write so callers can classify the failure
// without string matching.
var ErrStorage = errors.New("storage error")

// closeQuietly is for error paths where a Close failure changes nothing.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// closeWithLog is the deferred form for rows and statements.
func closeWithLog(c io.Closer, what string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Str("type", what).Msg("Failed to close resource")
	}
}

// DuckDB reports optimistic-concurrency losses only through message text.
var conflictMarkers = []string{
	"Transaction conflict",
	"Conflict on update",
	"cannot update a table that has been altered",
}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range conflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isInternalError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "INTERNAL Error")
}

// maxWriteRetries counts attempts, the first one included.
const maxWriteRetries = 3

// conflictBackoff waits 1ms, then 2ms, between attempts.
func conflictBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, maxWriteRetries-1), ctx)
}

// withConflictRetry runs write, retrying only transaction conflicts. Every
// failure comes back wrapped in ErrStorage.
func withConflictRetry(ctx context.Context, write func(context.Context) error) error {
	err := backoff.Retry(func() error {
		err := write(ctx)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return backoff.Permanent(fmt.Errorf("operation timed out or canceled: %w", ctx.Err()))
		case isInternalError(err):
			return backoff.Permanent(fmt.Errorf("DuckDB internal error: %w", err))
		case !isTransactionConflict(err):
			return backoff.Permanent(err)
		}
		return err
	}, conflictBackoff(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
