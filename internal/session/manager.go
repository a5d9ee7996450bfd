// ABOUTME: Manager maps the browser session cookie to a restored Session
// ABOUTME: Handles cookie issue, sliding expiry, logout, and the expired session sweep

package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/stellara/stellara-admin/internal/store"
)

// CookieName is the browser cookie carrying the session ID.
const CookieName = "stellara_session"

// DefaultDuration is how long an idle session lives.
const DefaultDuration = 12 * time.Hour

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "session"

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// BaseURL is the backend base URL reported in every snapshot.
	BaseURL string
	// Duration is the idle lifetime of a session.
	Duration time.Duration
	// Secret seals stored tokens when set.
	Secret string
	// SecureCookie forces the Secure attribute even on plain HTTP requests.
	SecureCookie bool
}

// Manager resolves, creates, and ends browser sessions.
type Manager struct {
	store    store.Store
	sealer   Sealer
	baseURL  string
	duration time.Duration
	secure   bool
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*Session
}

// NewManager creates a Manager over st.
func NewManager(st store.Store, cfg ManagerConfig) (*Manager, error) {
	m := &Manager{
		store:    st,
		baseURL:  cfg.BaseURL,
		duration: cfg.Duration,
		secure:   cfg.SecureCookie,
		logger:   slog.Default().With("component", "session"),
		now:      time.Now,
		live:     make(map[string]*Session),
	}
	if m.duration <= 0 {
		m.duration = DefaultDuration
	}
	if cfg.Secret != "" {
		box, err := NewSecretBox(cfg.Secret)
		if err != nil {
			return nil, fmt.Errorf("creating token sealer: %w", err)
		}
		m.sealer = box
	}
	return m, nil
}

// Middleware attaches the browser's Session to the request context, issuing
// a fresh session and cookie when the browser has none or its session expired.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.fromRequest(w, r)
		if err != nil {
			m.logger.Error("failed to resolve session", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func (m *Manager) fromRequest(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		sess, err := m.Load(r.Context(), cookie.Value)
		if err == nil {
			if m.extend(r.Context(), sess) {
				m.setCookie(w, r, sess.ID())
			}
			return sess, nil
		}
		if !errors.Is(err, store.ErrSessionNotFound) {
			return nil, err
		}
	}

	sess, err := m.Create(r.Context(), r.UserAgent())
	if err != nil {
		return nil, err
	}
	m.setCookie(w, r, sess.ID())
	return sess, nil
}

// Load returns the live session with the given ID, restoring it from the store
// when it is not cached. Returns store.ErrSessionNotFound for unknown or
// expired sessions.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	if sess, ok := m.live[id]; ok {
		if !sess.expired(now) {
			m.mu.Unlock()
			return sess, nil
		}
		delete(m.live, id)
	}
	m.mu.Unlock()

	rec, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	sess := m.newSession(id)
	sess.setExpiry(rec.ExpiresAt)
	if err := sess.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have restored it first; keep the cached one so
	// flashes and view state stay in a single place.
	if cached, ok := m.live[id]; ok {
		return cached, nil
	}
	m.live[id] = sess
	return sess, nil
}

// Create starts a new, empty session.
func (m *Manager) Create(ctx context.Context, userAgent string) (*Session, error) {
	id, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	now := m.now()
	rec := &store.Session{
		ID:        id,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.duration),
	}
	if err := m.store.CreateSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	sess := m.newSession(id)
	sess.setExpiry(rec.ExpiresAt)

	m.mu.Lock()
	m.live[id] = sess
	m.mu.Unlock()

	m.logger.Debug("created session", "session_id", shortID(id))
	return sess, nil
}

// End logs the session out and removes it from the store. The browser gets
// a new, empty session on its next request.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if err := sess.Clear(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.live, sess.ID())
	m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, sess.ID()); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Sweep removes expired sessions from the store and the cache.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	removed, err := m.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	m.mu.Lock()
	for id, sess := range m.live {
		if sess.expired(now) {
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				m.logger.Info("swept expired sessions", "count", removed)
			}
		}
	}
}

// extend slides the expiry forward once half the lifetime is used.
// Reports whether the cookie needs refreshing.
func (m *Manager) extend(ctx context.Context, sess *Session) bool {
	now := m.now()

	sess.mu.RLock()
	remaining := sess.expiresAt.Sub(now)
	sess.mu.RUnlock()

	if remaining > m.duration/2 {
		return false
	}

	expiresAt := now.Add(m.duration)
	if err := m.store.ExtendSession(ctx, sess.ID(), expiresAt); err != nil {
		m.logger.Warn("failed to extend session", "session_id", shortID(sess.ID()), "error", err)
		return false
	}
	sess.setExpiry(expiresAt)
	return true
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  m.now().Add(m.duration),
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) newSession(id string) *Session {
	return New(id, &storeStorage{values: m.store, sessionID: id}, m.baseURL, Options{
		Sealer: m.sealer,
		Logger: m.logger,
	})
}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext returns the Session attached by the middleware, or nil.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// storeStorage adapts a store.ValueStore to the Storage of one session.
type storeStorage struct {
	values    store.ValueStore
	sessionID string
}

func (s *storeStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.values.GetValue(ctx, s.sessionID, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *storeStorage) Set(ctx context.Context, key, value string) error {
	return s.values.SetValue(ctx, s.sessionID, key, value)
}

func (s *storeStorage) Delete(ctx context.Context, key string) error {
	return s.values.DeleteValue(ctx, s.sessionID, key)
}

// generateSecureToken generates a cryptographically secure random hex token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
