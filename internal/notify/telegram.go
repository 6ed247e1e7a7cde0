// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gscstats/internal/config"
	"github.com/tomtom215/gscstats/internal/logging"
	"github.com/tomtom215/gscstats/internal/metrics"
	"github.com/tomtom215/gscstats/internal/models"
)

const (
	// DefaultTelegramAPIURL is the public Bot API endpoint.
	DefaultTelegramAPIURL = "https://api.telegram.org"

	// MaxMessageLength is Telegram's message length limit.
	MaxMessageLength = 4096

	// maxListedErrors bounds how many run errors are quoted in a message
	maxListedErrors = 5
	maxErrorLength  = 300

	channelTelegram = "telegram"
)

// ErrInvalidConfig is returned by NewTelegramNotifier for unusable settings.
var ErrInvalidConfig = errors.New("invalid telegram configuration")

// TelegramNotifier posts sync run summaries through the Telegram Bot API.
type TelegramNotifier struct {
	client   *http.Client
	baseURL  string
	botToken string
	chatID   string
}

// NewTelegramNotifier validates cfg and returns a notifier for it.
func NewTelegramNotifier(cfg *config.NotifyConfig) (*TelegramNotifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", ErrInvalidConfig)
	}
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("%w: bot token is required", ErrInvalidConfig)
	}
	if cfg.TelegramChatID == "" {
		return nil, fmt.Errorf("%w: chat ID is required", ErrInvalidConfig)
	}
	// Bot tokens are numbers:alphanumeric
	parts := strings.Split(cfg.TelegramBotToken, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: malformed bot token", ErrInvalidConfig)
	}

	baseURL := strings.TrimRight(cfg.TelegramAPIURL, "/")
	if baseURL == "" {
		baseURL = DefaultTelegramAPIURL
	}

	return &TelegramNotifier{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  baseURL,
		botToken: cfg.TelegramBotToken,
		chatID:   cfg.TelegramChatID,
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type apiResponse struct {
	OK          bool           `json:"ok"`
	ErrorCode   int            `json:"error_code,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  *apiParameters `json:"parameters,omitempty"`
}

type apiParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// NotifySyncFinished sends the summary of one finished run.
func (n *TelegramNotifier) NotifySyncFinished(ctx context.Context, progress models.SyncProgress, report models.SyncReport) error {
	err := n.send(ctx, FormatSummary(progress, report))
	metrics.RecordNotification(channelTelegram, err)
	if err != nil {
		return err
	}
	logging.Debug().Str("channel", channelTelegram).Str("phase", string(progress.Phase)).Msg("Sync summary delivered")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the bot token, keep it out of logs
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("failed to send message: %w", urlErr.Err)
		}
		return fmt.Errorf("failed to send message: %s", logging.RedactSecret(err.Error(), n.botToken))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if apiResp.OK {
		return nil
	}
	if apiResp.Parameters != nil && apiResp.Parameters.RetryAfter > 0 {
		return fmt.Errorf("telegram rate limited, retry after %ds: %s", apiResp.Parameters.RetryAfter, apiResp.Description)
	}
	return fmt.Errorf("telegram error %d: %s", apiResp.ErrorCode, apiResp.Description)
}

// FormatSummary renders a run summary as Telegram HTML, truncated to
// MaxMessageLength.
func FormatSummary(progress models.SyncProgress, report models.SyncReport) string {
	var b strings.Builder

	status := "completed"
	if progress.Phase == models.PhaseFailed {
		status = "failed"
	}
	fmt.Fprintf(&b, "<b>Search Console sync %s</b>\n", status)
	fmt.Fprintf(&b, "Entities: %d/%d\n", progress.EntitiesDone, progress.TotalEntities)
	fmt.Fprintf(&b, "Jobs: %d attempted, %d persisted, %d skipped, %d failed\n",
		report.Attempted, report.Persisted, report.Skipped, report.Failed)

	if progress.StartedAt != nil && progress.FinishedAt != nil {
		fmt.Fprintf(&b, "Duration: %s\n", progress.FinishedAt.Sub(*progress.StartedAt).Round(time.Second))
	}

	if len(progress.Errors) > 0 {
		fmt.Fprintf(&b, "\n<b>Errors (%d)</b>\n", len(progress.Errors))
		for i, e := range progress.Errors {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "... and %d more\n", len(progress.Errors)-maxListedErrors)
				break
			}
			fmt.Fprintf(&b, "• <code>%s</code>\n", escapeHTML(truncate(e, maxErrorLength)))
		}
	}

	return truncate(strings.TrimRight(b.String(), "\n"), MaxMessageLength)
}

// escapeHTML escapes the characters Telegram's HTML parse mode reserves.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
