// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package logging

import (
	"strings"
)

// SanitizeToken masks a secret token for logging, keeping only the first four
// characters so operators can tell tokens apart.
//
//	logging.Info().Str("bot_token", logging.SanitizeToken(token)).Msg("Telegram notifier enabled")
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****"
}

// SanitizeUsername truncates usernames taken from untrusted request headers.
func SanitizeUsername(username string) string {
	return truncateString(strings.TrimSpace(username), 64)
}

// RedactSecret replaces every occurrence of secret inside s. It is used on
// error strings from HTTP clients, which embed the full request URL.
func RedactSecret(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, SanitizeToken(secret))
}

// truncateString shortens s to maxLen bytes, marking the cut with "...".
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
