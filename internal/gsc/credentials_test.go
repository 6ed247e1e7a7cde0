// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package gsc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tomtom215/gscstats/internal/config"
)

const testClientSecret = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	if _, err := LoadToken(path); !errors.Is(err, ErrNoToken) {
		t.Fatalf("LoadToken() on missing file err = %v, want ErrNoToken", err)
	}

	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("token file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("LoadToken() = %+v", got)
	}
}

func TestLoadOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_secret.json")
	if err := os.WriteFile(path, []byte(testClientSecret), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadOAuthConfig(path)
	if err != nil {
		t.Fatalf("LoadOAuthConfig() error = %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "webmasters.readonly") {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}

	if _, err := LoadOAuthConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing client secret accepted")
	}
}

func TestTokenSource_RequiresToken(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "client_secret.json")
	if err := os.WriteFile(secret, []byte(testClientSecret), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := TokenSource(context.Background(), &config.ProviderConfig{
		ClientSecretFile: secret,
		TokenFile:        filepath.Join(dir, "token.json"),
	})
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestPersistingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	src := &persistingTokenSource{
		src:  oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "fresh"}),
		path: path,
		last: "stale",
	}

	tok, err := src.Token()
	if err != nil || tok.AccessToken != "fresh" {
		t.Fatalf("Token() = %v, %v", tok, err)
	}
	saved, err := LoadToken(path)
	if err != nil || saved.AccessToken != "fresh" {
		t.Errorf("refreshed token not saved: %v, %v", saved, err)
	}

	// unchanged token is not rewritten
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Token(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("unchanged token was rewritten")
	}
}

func TestAuthorize_EmptyCode(t *testing.T) {
	cfg := &oauth2.Config{ClientID: "id", Endpoint: oauth2.Endpoint{AuthURL: "https://example.invalid/auth", TokenURL: "https://example.invalid/token"}}
	var out strings.Builder
	_, err := Authorize(context.Background(), cfg, strings.NewReader("\n"), &out, filepath.Join(t.TempDir(), "t.json"))
	if err == nil {
		t.Error("empty code accepted")
	}
	if !strings.Contains(out.String(), "https://example.invalid/auth") {
		t.Errorf("consent URL not printed: %q", out.String())
	}
}
