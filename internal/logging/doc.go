// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

/*
Package logging provides the process-wide zerolog logger for GSCStats.

# Quick Start

	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})

	logging.Info().Str("entity", "example.com").Msg("Sync started")
	logging.Error().Err(err).Msg("Upsert failed")

	// With context (correlation ID per sync run, request ID per HTTP request)
	logging.Ctx(ctx).Warn().Str("date", d.String()).Msg("Fetch failed")

# Components

WithComponent returns a child logger tagged with a component field. The sync
manager, cache layer and provider client each hold one.

# slog Interop

NewSlogLogger builds an slog.Logger backed by zerolog. The supervisor tree
passes it to sutureslog so supervision events share the same output.

# Conventions

Always terminate log chains with .Msg() or .Send(), and prefer structured
fields over formatted messages. Secrets pass through SanitizeToken or
RedactSecret before they reach a log line.
*/
package logging
