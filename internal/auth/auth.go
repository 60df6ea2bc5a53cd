// Package auth manages the client's bearer token: in-memory session
// state, optional remember-me persistence, and local expiry inspection so
// an expired session is classified as authentication-required before any
// round trip.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/decodey/internal/storage"
)

// Manager holds the current session credentials. It implements the api
// package's TokenSource.
type Manager struct {
	store  *storage.Store
	logger *log.Logger
	now    func() time.Time

	mu         sync.RWMutex
	token      string
	username   string
	rememberMe bool
}

// NewManager creates a token manager, restoring a persisted session when
// remember-me was set and the stored token has not expired.
func NewManager(store *storage.Store, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	remember, found, err := store.GetValue(storage.KeyRememberMe)
	if err != nil {
		return nil, fmt.Errorf("auth: cannot read remember-me preference: %w", err)
	}
	if !found || remember != "1" {
		return m, nil
	}
	m.rememberMe = true

	token, found, err := store.GetValue(storage.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("auth: cannot read stored token: %w", err)
	}
	if !found || token == "" {
		return m, nil
	}

	if TokenExpired(token, m.now()) {
		logger.Info("stored session expired, discarding token")
		if err := m.clearPersisted(); err != nil {
			logger.Warn("could not clear expired token", "error", err)
		}
		return m, nil
	}

	m.token = token
	if username, found, err := store.GetValue(storage.KeyUsername); err == nil && found {
		m.username = username
	}
	return m, nil
}

// BearerToken returns the current token and whether the user is
// authenticated. Expiry is re-checked on every call so a long-lived
// process notices its session dying.
func (m *Manager) BearerToken() (string, bool) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if TokenExpired(token, m.now()) {
		return "", false
	}
	return token, true
}

// Authenticated reports whether a usable token is present.
func (m *Manager) Authenticated() bool {
	_, ok := m.BearerToken()
	return ok
}

// Username returns the logged-in username, empty when anonymous.
func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.username
}

// SetSession installs a fresh token. With rememberMe the session survives
// process restarts.
func (m *Manager) SetSession(token, username string, rememberMe bool) error {
	m.mu.Lock()
	m.token = token
	m.username = username
	m.rememberMe = rememberMe
	m.mu.Unlock()

	if !rememberMe {
		// Forget any previously persisted session too.
		return m.clearPersisted()
	}

	if err := m.store.SetValue(storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("auth: cannot persist token: %w", err)
	}
	if err := m.store.SetValue(storage.KeyUsername, username); err != nil {
		return fmt.Errorf("auth: cannot persist username: %w", err)
	}
	if err := m.store.SetValue(storage.KeyRememberMe, "1"); err != nil {
		return fmt.Errorf("auth: cannot persist remember-me: %w", err)
	}
	return nil
}

// ClearSession drops the session locally, in memory and on disk.
func (m *Manager) ClearSession() error {
	m.mu.Lock()
	m.token = ""
	m.username = ""
	m.rememberMe = false
	m.mu.Unlock()

	return m.clearPersisted()
}

func (m *Manager) clearPersisted() error {
	for _, key := range []string{storage.KeyAuthToken, storage.KeyUsername, storage.KeyRememberMe} {
		if err := m.store.DeleteValue(key); err != nil {
			return fmt.Errorf("auth: cannot clear stored session: %w", err)
		}
	}
	return nil
}

// TokenExpired inspects a JWT's exp claim without verifying the
// signature; verification is the server's job, the client only wants to
// skip round trips that are guaranteed to 401. Opaque (non-JWT) tokens
// and tokens without an exp claim are assumed live.
func TokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
