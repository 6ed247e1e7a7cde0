// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("expected default timestamp to be true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("entity", "example.com").Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
	if !strings.Contains(output, `"entity":"example.com"`) {
		t.Errorf("expected output to contain entity field, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCtx_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	ctx := ContextWithCorrelationID(context.Background(), "run12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	Ctx(ctx).Info().Msg("with context")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"run12345"`) {
		t.Errorf("missing correlation_id in %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-1"`) {
		t.Errorf("missing request_id in %s", out)
	}
}

func TestCtx_PrefersContextLogger(t *testing.T) {
	var global, scoped bytes.Buffer
	SetLogger(NewTestLogger(&global))
	defer Init(DefaultConfig())

	ctx := ContextWithLogger(context.Background(), NewTestLogger(&scoped))
	Ctx(ctx).Info().Msg("scoped")

	if global.Len() != 0 {
		t.Errorf("global logger should be unused, got %s", global.String())
	}
	if !strings.Contains(scoped.String(), "scoped") {
		t.Errorf("scoped logger missing message: %s", scoped.String())
	}
}

func TestCtx_SyncKindAndNesting(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	run := ContextWithCorrelationID(context.Background(), "run1")
	phase := ContextWithSyncKind(run, "country")
	Ctx(phase).Info().Msg("phase")

	out := buf.String()
	if !strings.Contains(out, `"kind":"country"`) || !strings.Contains(out, `"correlation_id":"run1"`) {
		t.Errorf("missing scoped fields in %s", out)
	}

	buf.Reset()
	Ctx(run).Info().Msg("run")
	if strings.Contains(buf.String(), `"kind"`) {
		t.Errorf("child scope leaked into parent: %s", buf.String())
	}
}

func TestContextIDs_Absent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" {
		t.Error("expected empty IDs from a bare context")
	}
}

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()
	a, b := GenerateCorrelationID(), GenerateCorrelationID()
	if len(a) != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", len(a))
	}
	if a == b {
		t.Error("expected distinct correlation IDs")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	defer Init(DefaultConfig())

	l := WithComponent("cache")
	l.Info().Msg("ready")

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("missing component in %s", buf.String())
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	if got := SanitizeToken("123456:ABCDEFGHIJ"); got != "1234****" {
		t.Errorf("SanitizeToken() = %q, want 1234****", got)
	}
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q, want ****", got)
	}
	if got := SanitizeToken(""); got != "" {
		t.Errorf("SanitizeToken(\"\") = %q, want empty", got)
	}

	errText := `Post "https://api.telegram.org/bot123456:SECRETTOKEN/sendMessage": dial tcp: timeout`
	redacted := RedactSecret(errText, "123456:SECRETTOKEN")
	if strings.Contains(redacted, "SECRETTOKEN") {
		t.Errorf("RedactSecret() leaked the token: %s", redacted)
	}
	if RedactSecret("unchanged", "") != "unchanged" {
		t.Error("RedactSecret() with empty secret should be a no-op")
	}

	long := strings.Repeat("u", 100)
	if got := SanitizeUsername(long); len(got) != 64 || !strings.HasSuffix(got, "...") {
		t.Errorf("SanitizeUsername() = %q, want 64 chars ending in ...", got)
	}
}
