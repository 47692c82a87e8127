// Package session manages the two independent auth contexts of the portal:
// the site (cleaner) session and the admin session. Both share one Manager
// implementation parameterized by namespace and lifetime.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cleanhub/stockport/internal/store"
)

// Default namespaces for the two portal auth contexts.
const (
	NamespaceSite  = "site"
	NamespaceAdmin = "admin"
)

// DefaultCheckInterval is how often the watcher re-evaluates the deadline.
const DefaultCheckInterval = 5 * time.Second

// Config parameterizes a Manager for one auth context.
type Config struct {
	Namespace     string
	TTL           time.Duration
	CheckInterval time.Duration // defaults to DefaultCheckInterval
	// OnExpire runs exactly once per session when the TTL elapses. It is not
	// called on explicit Logout.
	OnExpire func()
}

// Manager owns one persisted session and its expiry watcher. The watcher is
// started by Login (or Resume) and stopped by Logout, expiry, or Close; no
// ambient timers outlive the Manager.
type Manager struct {
	cfg    Config
	store  *store.SessionStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	expired bool
}

func NewManager(cfg Config, st *store.SessionStore, logger *slog.Logger) *Manager {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	return &Manager{
		cfg:    cfg,
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Login persists the credential with the current timestamp and starts the
// expiry watcher.
func (m *Manager) Login(ctx context.Context, token, scopeID string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}

	rec := &store.SessionRecord{
		Namespace: m.cfg.Namespace,
		Token:     token,
		ScopeID:   scopeID,
		IssuedAt:  m.now(),
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return err
	}

	m.mu.Lock()
	m.expired = false
	m.startWatcherLocked()
	m.mu.Unlock()

	m.logger.Info("session started", "namespace", m.cfg.Namespace)
	return nil
}

// Logout clears the persisted credential and stops the watcher. It does not
// invoke OnExpire.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.stopWatcherLocked()
	m.mu.Unlock()

	if err := m.store.Delete(ctx, m.cfg.Namespace); err != nil {
		return err
	}
	m.logger.Info("session ended", "namespace", m.cfg.Namespace)
	return nil
}

// Current returns the live session, or nil when there is none. A session
// whose deadline has passed is expired on the spot, so callers never see a
// stale credential even if the watcher is not running.
func (m *Manager) Current(ctx context.Context) (*store.SessionRecord, error) {
	rec, err := m.store.Get(ctx, m.cfg.Namespace)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if !m.now().Before(m.deadline(rec)) {
		m.expire(ctx)
		return nil, nil
	}
	return rec, nil
}

// Resume starts the watcher for an already-persisted session, expiring it
// immediately if its deadline has already passed. It reports whether a live
// session exists.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	rec, err := m.Current(ctx)
	if err != nil || rec == nil {
		return false, err
	}
	m.mu.Lock()
	m.startWatcherLocked()
	m.mu.Unlock()
	return true, nil
}

// Expired reports whether the session ended by TTL expiry (as opposed to
// explicit logout) since the last Login.
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Close stops the watcher without touching the persisted session.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopWatcherLocked()
	m.mu.Unlock()
}

// deadline is issuedAt+TTL, clamped to the token's own exp claim when the
// token is a JWT. The claim is read without signature verification; only the
// backend can verify it, and we use it solely to expire earlier, never later.
func (m *Manager) deadline(rec *store.SessionRecord) time.Time {
	d := rec.IssuedAt.Add(m.cfg.TTL)
	if exp := jwtExpiry(rec.Token); !exp.IsZero() && exp.Before(d) {
		d = exp
	}
	return d
}

func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (m *Manager) expire(ctx context.Context) {
	m.mu.Lock()
	if m.expired {
		m.mu.Unlock()
		return
	}
	m.expired = true
	m.stopWatcherLocked()
	m.mu.Unlock()

	if err := m.store.Delete(ctx, m.cfg.Namespace); err != nil {
		m.logger.Error("failed to clear expired session", "namespace", m.cfg.Namespace, "error", err)
	}
	m.logger.Info("session expired", "namespace", m.cfg.Namespace)

	if m.cfg.OnExpire != nil {
		m.cfg.OnExpire()
	}
}

func (m *Manager) startWatcherLocked() {
	if m.stop != nil {
		return
	}
	stop := make(chan struct{})
	m.stop = stop
	go m.watch(stop)
}

func (m *Manager) stopWatcherLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func (m *Manager) watch(stop chan struct{}) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx := context.Background()
			rec, err := m.store.Get(ctx, m.cfg.Namespace)
			if err != nil {
				m.logger.Error("session check failed", "namespace", m.cfg.Namespace, "error", err)
				continue
			}
			if rec == nil {
				// Session removed out from under the watcher.
				m.mu.Lock()
				m.stopWatcherLocked()
				m.mu.Unlock()
				return
			}
			if !m.now().Before(m.deadline(rec)) {
				m.expire(ctx)
				return
			}
		}
	}
}
