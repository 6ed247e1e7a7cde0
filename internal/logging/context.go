// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fieldsKey struct{}

type loggerKey struct{}

// scope holds the IDs Ctx adds to every event. Contexts carry it by value so
// a child never mutates its parent's fields.
type scope struct {
	correlationID string // one sync run or one HTTP request
	requestID     string
	syncKind      string
}

func scopeFrom(ctx context.Context) scope {
	s, _ := ctx.Value(fieldsKey{}).(scope)
	return s
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	s := scopeFrom(ctx)
	update(&s)
	return context.WithValue(ctx, fieldsKey{}, s)
}

// GenerateCorrelationID returns the first 8 characters of a random UUID.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID sets the correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.correlationID = id })
}

// ContextWithNewCorrelationID sets a freshly generated correlation ID.
//
//	runCtx := logging.ContextWithNewCorrelationID(context.Background())
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).correlationID
}

// ContextWithRequestID sets the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// RequestIDFromContext returns the HTTP request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

// ContextWithSyncKind tags events with the sync phase (primary or country).
func ContextWithSyncKind(ctx context.Context, kind string) context.Context {
	return withScope(ctx, func(s *scope) { s.syncKind = kind })
}

// ContextWithLogger makes Ctx build on logger instead of the global one.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx returns a logger carrying the IDs stored in ctx.
//
//	logging.Ctx(ctx).Info().Str("domain", entity).Msg("Range resolved")
func Ctx(ctx context.Context) *zerolog.Logger {
	base, ok := ctx.Value(loggerKey{}).(zerolog.Logger)
	if !ok {
		base = Logger()
	}

	s := scopeFrom(ctx)
	logCtx := base.With()
	if s.correlationID != "" {
		logCtx = logCtx.Str("correlation_id", s.correlationID)
	}
	if s.requestID != "" {
		logCtx = logCtx.Str("request_id", s.requestID)
	}
	if s.syncKind != "" {
		logCtx = logCtx.Str("kind", s.syncKind)
	}

	logger := logCtx.Logger()
	return &logger
}

// WithComponent creates a child of the global logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
