// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers schema creation, session lifecycle, expiry, and value persistence

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.CreateSession(ctx, newSession("sess-1", time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := first.SetValue(ctx, "sess-1", "token", "abc"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	first.Close()

	// Migrations must be idempotent and data must survive a reopen
	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	defer second.Close()

	got, err := second.GetValue(ctx, "sess-1", "token")
	if err != nil {
		t.Fatalf("GetValue after reopen failed: %v", err)
	}
	if got != "abc" {
		t.Errorf("value after reopen = %q, want %q", got, "abc")
	}
}

func TestSQLiteStore_SessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := newSession("sess-123", time.Hour)
	session.UserAgent = "test-agent"

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-123")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != session.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, session.ID)
	}
	if got.UserAgent != "test-agent" {
		t.Errorf("UserAgent mismatch: got %q, want %q", got.UserAgent, "test-agent")
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("ExpiresAt mismatch: got %v, want %v", got.ExpiresAt, session.ExpiresAt)
	}

	if err := store.DeleteSession(ctx, "sess-123"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	_, err = store.GetSession(ctx, "sess-123")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession after delete: got %v, want ErrSessionNotFound", err)
	}
}

func TestSQLiteStore_CreateSession_Duplicate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSession(ctx, newSession("dup", time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	err := store.CreateSession(ctx, newSession("dup", time.Hour))
	if !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("second CreateSession: got %v, want ErrDuplicateSession", err)
	}
}

func TestSQLiteStore_ExpiredSessionIsNotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSession(ctx, newSession("old", -time.Minute)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err := store.GetSession(ctx, "old")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession on expired: got %v, want ErrSessionNotFound", err)
	}

	err = store.ExtendSession(ctx, "old", time.Now().Add(time.Hour))
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ExtendSession on expired: got %v, want ErrSessionNotFound", err)
	}
}

func TestSQLiteStore_ExtendSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSession(ctx, newSession("ext", time.Minute)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	newExpiry := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	if err := store.ExtendSession(ctx, "ext", newExpiry); err != nil {
		t.Fatalf("ExtendSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "ext")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.ExpiresAt.Equal(newExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, newExpiry)
	}
}

func TestSQLiteStore_DeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, s := range []*Session{
		newSession("expired-1", -time.Hour),
		newSession("expired-2", -time.Minute),
		newSession("live", time.Hour),
	} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", s.ID, err)
		}
	}
	if err := store.SetValue(ctx, "expired-1", "token", "stale"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	removed, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, err := store.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session should survive sweep: %v", err)
	}

	// Values cascade with their session
	_, err = store.GetValue(ctx, "expired-1", "token")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("value of swept session: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Values(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSession(ctx, newSession("sess", time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err := store.GetValue(ctx, "sess", "token")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetValue on empty: got %v, want ErrNotFound", err)
	}

	if err := store.SetValue(ctx, "sess", "token", "first"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := store.SetValue(ctx, "sess", "token", "second"); err != nil {
		t.Fatalf("SetValue overwrite failed: %v", err)
	}

	got, err := store.GetValue(ctx, "sess", "token")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if got != "second" {
		t.Errorf("GetValue = %q, want %q", got, "second")
	}

	if err := store.DeleteValue(ctx, "sess", "token"); err != nil {
		t.Fatalf("DeleteValue failed: %v", err)
	}
	if err := store.DeleteValue(ctx, "sess", "token"); err != nil {
		t.Errorf("DeleteValue on missing key should not fail: %v", err)
	}

	_, err = store.GetValue(ctx, "sess", "token")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetValue after delete: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_SetValue_UnknownSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.SetValue(context.Background(), "nobody", "token", "x")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("SetValue on unknown session: got %v, want ErrSessionNotFound", err)
	}
}

func TestSQLiteStore_DeleteSessionCascades(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateSession(ctx, newSession("sess", time.Hour)); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.SetValue(ctx, "sess", "user", `{"email":"a@b.c"}`); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := store.DeleteSession(ctx, "sess"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	_, err := store.GetValue(ctx, "sess", "user")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("value after session delete: got %v, want ErrNotFound", err)
	}
}

func newSession(id string, ttl time.Duration) *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return store
}
