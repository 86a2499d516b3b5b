// Package auth keeps the signed-in session on disk and talks to the
// backend's auth endpoints.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/spendwise-dev/spendwise/internal/gateway"
)

// Session is the persisted login.
type Session struct {
	Token     string       `yaml:"token"`
	User      gateway.User `yaml:"user"`
	CreatedAt time.Time    `yaml:"created_at"`
}

// Complete reports whether both a token and a user are present.
func (s *Session) Complete() bool {
	return s != nil && s.Token != "" && s.User.Email != ""
}

// LoadSession reads the session at path. A missing, unreadable or partial
// file yields a nil session; partial or corrupt files are removed.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil || !s.Complete() {
		_ = os.Remove(path)
		return nil, nil
	}
	return &s, nil
}

// SaveSession writes s to path, readable only by the owner.
func SaveSession(path string, s *Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// ClearSession deletes the session file if it exists.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

// TokenExpired decodes token without verifying its signature and reports
// whether its exp claim is in the past. An empty token is expired; a token
// that cannot be decoded, or has no exp, is assumed valid.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}
