// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package gsc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

// BreakerName labels the provider breaker in metrics.
const BreakerName = "search-console-api"

// Trip once at least breakerMinRequests calls in the window have failed at
// breakerFailureRatio or worse.
const (
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
	breakerHalfOpenMax  = 3
	breakerWindow       = time.Minute
	breakerCooldown     = 2 * time.Minute
)

// gauge values for metrics.CircuitBreakerState
var breakerStates = map[gobreaker.State]struct {
	name  string
	gauge float64
}{
	gobreaker.StateClosed:   {"closed", 0},
	gobreaker.StateHalfOpen: {"half-open", 1},
	gobreaker.StateOpen:     {"open", 2},
}

func stateName(s gobreaker.State) string {
	if st, ok := breakerStates[s]; ok {
		return st.name
	}
	return "unknown"
}

// CircuitBreakerClient fails jobs fast while Search Console is down instead
// of letting every worker wait out its own timeout.
type CircuitBreakerClient struct {
	client Provider
	cb     *gobreaker.CircuitBreaker[any]
}

func NewCircuitBreakerClient(client Provider) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(breakerStates[gobreaker.StateClosed].gauge)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(BreakerName).Set(0)

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker[any](breakerSettings()),
	}
}

func breakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: breakerHalfOpenMax,
		Interval:    breakerWindow,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < breakerMinRequests {
				return false
			}
			ratio := float64(c.TotalFailures) / float64(c.Requests)
			if ratio < breakerFailureRatio {
				return false
			}
			logging.Warn().Uint32("failures", c.TotalFailures).Float64("failure_ratio", ratio).Msg("Opening provider circuit")
			return true
		},
		// Shutdown cancels in-flight calls; the provider did nothing wrong.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", stateName(from)).Str("to", stateName(to)).Msg("Provider circuit state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStates[to].gauge)
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateName(from), stateName(to)).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	}
}

// execute runs fn through the breaker. Calls refused by an open or saturated
// half-open breaker come back wrapped in ErrProviderUnavailable.
func (c *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := c.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(BreakerName).Set(0)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "rejected").Inc()
		logging.Debug().Err(err).Msg("Provider call rejected by circuit")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(BreakerName, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(BreakerName).Set(float64(c.cb.Counts().ConsecutiveFailures))
		return nil, err
	}
}

// castResult recovers the concrete type the wrapped call returned.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil || result == nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// State is "closed", "half-open" or "open".
func (c *CircuitBreakerClient) State() string {
	return stateName(c.cb.State())
}

func (c *CircuitBreakerClient) FetchPrimary(ctx context.Context, entity string, date models.Date) (*models.DailyMetrics, error) {
	return castResult[*models.DailyMetrics](c.execute(func() (any, error) {
		return c.client.FetchPrimary(ctx, entity, date)
	}))
}

func (c *CircuitBreakerClient) FetchDimensioned(ctx context.Context, entity string, date models.Date) ([]models.DimensionedMetricRecord, error) {
	return castResult[[]models.DimensionedMetricRecord](c.execute(func() (any, error) {
		return c.client.FetchDimensioned(ctx, entity, date)
	}))
}

var _ Provider = (*CircuitBreakerClient)(nil)
