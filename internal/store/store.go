// ABOUTME: Store interfaces and data types for stellara-admin session persistence
// ABOUTME: Defines browser sessions, their key/value entries, and the operator activity log

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested value does not exist
var ErrNotFound = errors.New("not found")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrDuplicateSession is returned when trying to create a session whose ID is taken.
var ErrDuplicateSession = errors.New("session already exists")

// Session is one browser session. The cookie carries only its ID.
type Session struct {
	ID        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore persists browser sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	// GetSession returns ErrSessionNotFound for missing and expired sessions.
	GetSession(ctx context.Context, id string) (*Session, error)
	// ExtendSession moves the expiry of a live session.
	ExtendSession(ctx context.Context, id string, expiresAt time.Time) error
	// DeleteSession removes the session and every value it owns.
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes expired sessions and returns how many went.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// ValueStore persists string values scoped to a session.
type ValueStore interface {
	// GetValue returns ErrNotFound when the key has no value.
	GetValue(ctx context.Context, sessionID, key string) (string, error)
	// SetValue upserts a value. Returns ErrSessionNotFound for unknown sessions.
	SetValue(ctx context.Context, sessionID, key, value string) error
	// DeleteValue removes a value. Deleting a missing key is not an error.
	DeleteValue(ctx context.Context, sessionID, key string) error
}

// ActivityLog records operator actions. Entries are not tied to a session.
type ActivityLog interface {
	// AppendActivity fills ID and Timestamp when unset.
	AppendActivity(ctx context.Context, e *Activity) error
	// ListActivity returns matching entries, newest first.
	ListActivity(ctx context.Context, f ActivityFilter) ([]Activity, error)
}

// Store combines session, value, and activity persistence.
type Store interface {
	SessionStore
	ValueStore
	ActivityLog
	Close() error
}
