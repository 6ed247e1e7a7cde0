// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/models"
)

func testConfig(apiURL string) *config.NotifyConfig {
	return &config.NotifyConfig{
		TelegramEnabled:  true,
		TelegramBotToken: "123456:ABC-def",
		TelegramChatID:   "-100200300",
		TelegramAPIURL:   apiURL,
	}
}

func TestNewTelegramNotifier_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.NotifyConfig
		wantErr bool
	}{
		{"nil config", nil, true},
		{"missing token", &config.NotifyConfig{TelegramChatID: "1"}, true},
		{"missing chat", &config.NotifyConfig{TelegramBotToken: "1:a"}, true},
		{"malformed token", &config.NotifyConfig{TelegramBotToken: "token", TelegramChatID: "1"}, true},
		{"empty token half", &config.NotifyConfig{TelegramBotToken: "1:", TelegramChatID: "1"}, true},
		{"valid", testConfig(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewTelegramNotifier(tt.cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("err = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.baseURL != DefaultTelegramAPIURL {
				t.Errorf("baseURL = %q, want default", n.baseURL)
			}
		})
	}
}

func TestNotifySyncFinished_PostsMessage(t *testing.T) {
	var gotPath string
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer server.Close()

	n, err := NewTelegramNotifier(testConfig(server.URL + "/"))
	if err != nil {
		t.Fatal(err)
	}

	progress := models.SyncProgress{Phase: models.PhaseCompleted, TotalEntities: 2, EntitiesDone: 2, Errors: []string{}}
	report := models.SyncReport{Attempted: 10, Persisted: 8, Skipped: 2}
	if err := n.NotifySyncFinished(context.Background(), progress, report); err != nil {
		t.Fatalf("NotifySyncFinished: %v", err)
	}

	if gotPath != "/bot123456:ABC-def/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if got.ChatID != "-100200300" || got.ParseMode != "HTML" || !got.DisableWebPagePreview {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(got.Text, "10 attempted, 8 persisted, 2 skipped, 0 failed") {
		t.Errorf("text missing counts: %q", got.Text)
	}
}

func TestNotifySyncFinished_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantSub string
	}{
		{"bad request", http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`, "chat not found"},
		{"rate limited", http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":30}}`, "retry after 30s"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			n, err := NewTelegramNotifier(testConfig(server.URL))
			if err != nil {
				t.Fatal(err)
			}
			err = n.NotifySyncFinished(context.Background(), models.IdleProgress(), models.SyncReport{})
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantSub)
			}
		})
	}
}

func TestNotifySyncFinished_TransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	n, err := NewTelegramNotifier(testConfig(url))
	if err != nil {
		t.Fatal(err)
	}
	err = n.NotifySyncFinished(context.Background(), models.IdleProgress(), models.SyncReport{})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if strings.Contains(err.Error(), "ABC-def") {
		t.Errorf("error leaks bot token: %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	started := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	t.Run("failed run lists escaped errors", func(t *testing.T) {
		progress := models.SyncProgress{
			Phase:         models.PhaseFailed,
			TotalEntities: 3,
			EntitiesDone:  1,
			Errors:        []string{"a.com 2025-03-01: <timeout> & retry"},
			StartedAt:     &started,
			FinishedAt:    &finished,
		}
		text := FormatSummary(progress, models.SyncReport{Attempted: 4, Persisted: 3, Failed: 1})

		for _, want := range []string{
			"<b>Search Console sync failed</b>",
			"Entities: 1/3",
			"Duration: 1m30s",
			"Errors (1)",
			"&lt;timeout&gt; &amp; retry",
		} {
			if !strings.Contains(text, want) {
				t.Errorf("summary missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("error list is bounded", func(t *testing.T) {
		errs := make([]string, 12)
		for i := range errs {
			errs[i] = fmt.Sprintf("error %d", i)
		}
		text := FormatSummary(models.SyncProgress{Phase: models.PhaseCompleted, Errors: errs}, models.SyncReport{})
		if !strings.Contains(text, "... and 7 more") {
			t.Errorf("expected overflow line:\n%s", text)
		}
		if strings.Contains(text, "error 5") {
			t.Errorf("sixth error should not be listed:\n%s", text)
		}
	})

	t.Run("long errors are cut", func(t *testing.T) {
		long := strings.Repeat("x", 5000)
		text := FormatSummary(models.SyncProgress{Phase: models.PhaseFailed, Errors: []string{long}}, models.SyncReport{})
		if len([]rune(text)) > MaxMessageLength {
			t.Errorf("summary length %d exceeds limit", len([]rune(text)))
		}
		if !strings.Contains(text, "...") {
			t.Error("expected truncation marker")
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"ääääää", 5, "ää..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
