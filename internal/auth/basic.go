// GSCStats - Search Console Metrics Sync and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gscstats

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNoCredentials means the request carried no Basic credentials.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials means the credentials were malformed or wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// MinPasswordLength is the shortest password NewBasicAuthManager accepts.
const MinPasswordLength = 8

// bcryptCost is lowered by tests
var bcryptCost = 12

// BasicAuthManager verifies HTTP Basic credentials against one account.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password once so requests only pay for the compare.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials checks an Authorization header value and returns the
// username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrNoCredentials
	}
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("%w: unsupported authorization scheme", ErrInvalidCredentials)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode credentials", ErrInvalidCredentials)
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", fmt.Errorf("%w: invalid credentials format", ErrInvalidCredentials)
	}

	if !m.validateUsernamePassword(username, password) {
		return "", ErrInvalidCredentials
	}
	return username, nil
}

// validateUsernamePassword always runs both comparisons so a wrong username
// takes as long as a wrong password.
func (m *BasicAuthManager) validateUsernamePassword(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// WWWAuthenticateHeader is the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticateHeader() string {
	return `Basic realm="GSCStats", charset="UTF-8"`
}
