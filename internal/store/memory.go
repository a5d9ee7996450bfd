// ABOUTME: In-memory Store implementation for tests and throwaway deployments
// ABOUTME: Matches SQLiteStore semantics for expiry and cascading value deletion

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. It backs
// database.path ":memory:" and the tests of packages that need a Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session          // keyed by session ID
	values   map[string]map[string]string // keyed by session ID, then key
	activity []*Activity                  // append order
	now      func() time.Time
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		values:   make(map[string]map[string]string),
		now:      time.Now,
	}
}

// CreateSession stores a new session.
func (m *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return ErrDuplicateSession
	}

	// Make a copy to avoid external modification
	s := *session
	s.CreatedAt = s.CreatedAt.UTC().Truncate(time.Second)
	s.ExpiresAt = s.ExpiresAt.UTC().Truncate(time.Second)
	m.sessions[s.ID] = &s
	return nil
}

// live returns the session if it exists and has not expired. Caller holds the lock.
func (m *MemoryStore) live(id string) (*Session, bool) {
	s, ok := m.sessions[id]
	if !ok || s.Expired(m.now()) {
		return nil, false
	}
	return s, true
}

// GetSession retrieves a non-expired session.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.live(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	// Return a copy
	result := *s
	return &result, nil
}

// ExtendSession moves the expiry of a live session.
func (m *MemoryStore) ExtendSession(ctx context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.live(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.ExpiresAt = expiresAt.UTC().Truncate(time.Second)
	return nil
}

// DeleteSession removes a session and its values.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.values, id)
	return nil
}

// DeleteExpiredSessions removes every expired session and its values.
func (m *MemoryStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			delete(m.values, id)
			removed++
		}
	}
	return removed, nil
}

// GetValue returns the value stored under key for a session.
func (m *MemoryStore) GetValue(ctx context.Context, sessionID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[sessionID][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetValue stores value under key. The session must exist, as with the
// foreign key in SQLite.
func (m *MemoryStore) SetValue(ctx context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	if m.values[sessionID] == nil {
		m.values[sessionID] = make(map[string]string)
	}
	m.values[sessionID][key] = value
	return nil
}

// DeleteValue removes the value stored under key.
func (m *MemoryStore) DeleteValue(ctx context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values[sessionID], key)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
