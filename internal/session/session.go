// ABOUTME: Session holds the operator's backend token and user record for one browser session
// ABOUTME: Every change is written to durable storage before the in-memory copy is updated

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Storage keys. They match the keys the original browser client used.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage is the durable key/value backing of a single session.
type Storage interface {
	// Get returns ok=false when nothing is stored under key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Token   string
	User    User
	BaseURL string
}

// Authenticated reports whether the snapshot carries a token.
func (s Snapshot) Authenticated() bool {
	return s.Token != ""
}

// Session is the explicit context object handed to everything that needs the
// operator's credentials. It is safe for concurrent use.
type Session struct {
	id      string
	baseURL string
	storage Storage
	sealer  Sealer
	logger  *slog.Logger

	mu        sync.RWMutex
	token     string
	user      User
	flashes   []Flash
	expiresAt time.Time
	parts     map[string]any
}

// Options configures a Session.
type Options struct {
	// Sealer encrypts the token at rest. Nil stores it as is.
	Sealer Sealer
	Logger *slog.Logger
}

// New creates an empty session bound to storage. Call Restore to load
// previously persisted state.
func New(id string, storage Storage, baseURL string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "session")
	}
	return &Session{
		id:      id,
		baseURL: baseURL,
		storage: storage,
		sealer:  opts.Sealer,
		logger:  logger.With("session_id", shortID(id)),
		parts:   make(map[string]any),
	}
}

// ID returns the session identifier carried by the cookie.
func (s *Session) ID() string {
	return s.id
}

// Restore loads token and user from storage. Unreadable entries restore as
// absent: a token that cannot be unsealed or a user that is not a JSON object
// never fails the restore.
func (s *Session) Restore(ctx context.Context) error {
	rawToken, hasToken, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("reading user: %w", err)
	}

	var token string
	if hasToken {
		token, err = s.open(rawToken)
		if err != nil {
			s.logger.Warn("discarding unreadable stored token", "error", err)
			token = ""
		}
	}

	var user User
	if hasUser {
		user = parseUser(rawUser)
		if user == nil {
			s.logger.Warn("discarding malformed stored user")
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
	return nil
}

// SetToken stores a new token. An empty token removes the stored token and
// the stored user together.
func (s *Session) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := s.storage.Delete(ctx, KeyToken); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
		s.token = ""
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("removing user: %w", err)
		}
		s.user = nil
		return nil
	}

	sealed, err := s.seal(token)
	if err != nil {
		return fmt.Errorf("sealing token: %w", err)
	}
	if err := s.storage.Set(ctx, KeyToken, sealed); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	s.token = token
	return nil
}

// SetUser stores the user record. A nil or empty record removes it.
func (s *Session) SetUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(user) == 0 {
		if err := s.storage.Delete(ctx, KeyUser); err != nil {
			return fmt.Errorf("removing user: %w", err)
		}
		s.user = nil
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	if err := s.storage.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	s.user = user.Clone()
	return nil
}

// Clear logs the operator out by removing token and user.
func (s *Session) Clear(ctx context.Context) error {
	return s.SetToken(ctx, "")
}

// Snapshot returns the current token, user, and backend base URL.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Token:   s.token,
		User:    s.user.Clone(),
		BaseURL: s.baseURL,
	}
}

// Token returns the current token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Part returns the per-session value registered under name, creating it with
// create on first use. Views keep their state here so it lives and dies with
// the browser session.
func (s *Session) Part(name string, create func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.parts[name]; ok {
		return p
	}
	p := create()
	s.parts[name] = p
	return p
}

// DropPart forgets the value registered under name and returns it, nil
// when nothing was registered.
func (s *Session) DropPart(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.parts[name]
	delete(s.parts, name)
	return p
}

func (s *Session) seal(token string) (string, error) {
	if s.sealer == nil {
		return token, nil
	}
	return s.sealer.Seal(token)
}

func (s *Session) open(stored string) (string, error) {
	if s.sealer == nil {
		if IsSealed(stored) {
			return "", errors.New("token is sealed but no secret is configured")
		}
		return stored, nil
	}
	return s.sealer.Open(stored)
}

func (s *Session) setExpiry(t time.Time) {
	s.mu.Lock()
	s.expiresAt = t
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// shortID trims a session ID for log lines.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
