// Package session tracks operator logins in memory. Sessions expire after a
// fixed timeout, are refreshed by activity, and are swept periodically by a
// background goroutine separate from request handling and guarded by its
// own lock.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/clock"
)

// Session is one operator login.
type Session struct {
	Username   string    `json:"username"`
	LoginTime  time.Time `json:"login_time"`
	ExpireTime time.Time `json:"expire_time"`
}

// Status is the session check result returned to clients.
type Status struct {
	Valid            bool   `json:"valid"`
	Expired          bool   `json:"expired"`
	RemainingMinutes int    `json:"remaining_minutes"`
	Warning          bool   `json:"warning"`
	Message          string `json:"message"`
}

// Config tunes session lifetimes.
type Config struct {
	Timeout time.Duration
	Warning time.Duration
}

const (
	defaultTimeout = 2 * time.Hour
	defaultWarning = 5 * time.Minute
)

// Manager owns the in-memory session table. All methods are safe for
// concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session
	timeout  time.Duration
	warning  time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// NewManager builds a Manager with the given lifetimes; zero values fall
// back to two hours with a five-minute warning window.
func NewManager(cfg Config, clk clock.Clock, logger *zap.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Warning <= 0 {
		cfg.Warning = defaultWarning
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]Session),
		timeout:  cfg.Timeout,
		warning:  cfg.Warning,
		clock:    clk,
		logger:   logger,
	}
}

// Create registers a login, replacing any existing session for the user.
func (m *Manager) Create(username string) Session {
	now := m.clock.Now()
	sess := Session{
		Username:   username,
		LoginTime:  now,
		ExpireTime: now.Add(m.timeout),
	}
	m.mu.Lock()
	m.sessions[username] = sess
	online := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info("session created",
		zap.String("username", username),
		zap.Time("expires", sess.ExpireTime),
		zap.Int("online", online))
	return sess
}

// Check reports whether the user's session is still valid. With refresh set,
// a valid session's expiry is pushed out by the full timeout (activity keeps
// operators logged in).
func (m *Manager) Check(username string, refresh bool) Status {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[username]
	if !ok {
		return Status{Expired: true, Message: "no login record, please sign in"}
	}
	if !now.Before(sess.ExpireTime) {
		delete(m.sessions, username)
		m.logger.Warn("session expired", zap.String("username", username))
		return Status{Expired: true, Message: "session timed out, please sign in again"}
	}
	if refresh {
		sess.ExpireTime = now.Add(m.timeout)
		m.sessions[username] = sess
	}
	remaining := sess.ExpireTime.Sub(now)
	return Status{
		Valid:            true,
		RemainingMinutes: int(remaining.Minutes()),
		Warning:          remaining <= m.warning,
		Message:          "session valid",
	}
}

// Refresh extends the session's expiry. It reports whether a session existed.
func (m *Manager) Refresh(username string) bool {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[username]
	if !ok {
		return false
	}
	sess.ExpireTime = now.Add(m.timeout)
	m.sessions[username] = sess
	return true
}

// Remove deletes the user's session. It reports whether one existed.
func (m *Manager) Remove(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[username]; !ok {
		return false
	}
	delete(m.sessions, username)
	m.logger.Info("session removed", zap.String("username", username))
	return true
}

// CleanupExpired drops every expired session and returns the affected users.
func (m *Manager) CleanupExpired() []string {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for username, sess := range m.sessions {
		if !now.Before(sess.ExpireTime) {
			expired = append(expired, username)
			delete(m.sessions, username)
		}
	}
	if len(expired) > 0 {
		m.logger.Info("expired sessions cleaned", zap.Int("count", len(expired)))
	}
	return expired
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep runs CleanupExpired on the given interval until ctx is cancelled.
// Run it on its own goroutine.
func (m *Manager) Sweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.logger.Info("session sweep started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session sweep stopped")
			return
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}
