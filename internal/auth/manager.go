package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/gateway"
)

// ErrNotLoggedIn is returned by operations that need a session.
var ErrNotLoggedIn = errors.New("not logged in")

// Authenticator is the backend's auth surface.
type Authenticator interface {
	Login(ctx context.Context, creds gateway.Credentials) (gateway.AuthResult, error)
	Register(ctx context.Context, reg gateway.Registration) (gateway.AuthResult, error)
	ValidateToken(ctx context.Context) (gateway.User, error)
}

// Manager owns the current session. It satisfies gateway.TokenSource.
type Manager struct {
	path string
	api  Authenticator
	log  *logrus.Entry
	now  func() time.Time

	mu      sync.RWMutex
	session *Session
}

// NewManager creates a Manager persisting to path. Call Load to pick up an
// existing session and Bind to attach the backend.
func NewManager(path string, logger *logrus.Logger) *Manager {
	return &Manager{
		path: path,
		log:  logger.WithField("component", "auth"),
		now:  time.Now,
	}
}

// Bind attaches the backend used by Login, Register and Validate.
func (m *Manager) Bind(api Authenticator) { m.api = api }

// Load restores the session from disk. It reports whether one was found.
func (m *Manager) Load() (bool, error) {
	s, err := LoadSession(m.path)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return s != nil, nil
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// User returns the signed-in user.
func (m *Manager) User() (gateway.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return gateway.User{}, false
	}
	return m.session.User, true
}

// Authenticated reports whether a complete session is held.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Complete()
}

// Expired reports whether the held token's exp claim has passed.
func (m *Manager) Expired() bool {
	return TokenExpired(m.Token(), m.now())
}

// Login exchanges credentials for a session and persists it. On failure
// any previous session is cleared.
func (m *Manager) Login(ctx context.Context, creds gateway.Credentials) (gateway.User, error) {
	res, err := m.api.Login(ctx, creds)
	if err != nil {
		m.clear()
		return gateway.User{}, err
	}
	if err := m.store(res); err != nil {
		m.clear()
		return gateway.User{}, err
	}
	m.log.WithField("email", res.User.Email).Info("logged in")
	return res.User, nil
}

// Register creates an account and persists the returned session.
func (m *Manager) Register(ctx context.Context, reg gateway.Registration) (gateway.User, error) {
	res, err := m.api.Register(ctx, reg)
	if err != nil {
		m.clear()
		return gateway.User{}, err
	}
	if err := m.store(res); err != nil {
		m.clear()
		return gateway.User{}, err
	}
	m.log.WithField("email", res.User.Email).Info("registered")
	return res.User, nil
}

// Validate asks the backend whether the token is still accepted. A 401
// logs out; network or server failures keep the session and return the
// error.
func (m *Manager) Validate(ctx context.Context) (bool, error) {
	if m.Token() == "" {
		return false, nil
	}
	if _, err := m.api.ValidateToken(ctx); err != nil {
		if gateway.StatusCode(err) == http.StatusUnauthorized {
			m.log.Info("token rejected, clearing session")
			return false, m.Logout()
		}
		m.log.WithError(err).Warn("token validation failed, keeping session")
		return false, err
	}
	return true, nil
}

// Logout forgets the session in memory and on disk.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()
	return ClearSession(m.path)
}

// SessionExpired is the gateway's expiry hook.
func (m *Manager) SessionExpired() {
	if err := m.Logout(); err != nil {
		m.log.WithError(err).Warn("clearing expired session")
	}
}

func (m *Manager) store(res gateway.AuthResult) error {
	s := &Session{Token: res.Token, User: res.User, CreatedAt: m.now().UTC()}
	if err := SaveSession(m.path, s); err != nil {
		return fmt.Errorf("failed to save authentication data: %w", err)
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	return nil
}

func (m *Manager) clear() {
	if err := m.Logout(); err != nil {
		m.log.WithError(err).Warn("clearing session")
	}
}
