// ABOUTME: Tests for the session Manager and its middleware
// ABOUTME: Covers cookie issue, reuse, restore from store, logout, expiry, and sweeping

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellara/stellara-admin/internal/store"
)

func newTestManager(t *testing.T, st store.Store) *Manager {
	t.Helper()
	m, err := NewManager(st, ManagerConfig{
		BaseURL:  testBaseURL,
		Duration: time.Hour,
		Secret:   "0123456789abcdef",
	})
	require.NoError(t, err)
	return m
}

// serve runs one request through the middleware and returns the session the
// handler saw plus the response.
func serve(t *testing.T, m *Manager, cookie *http.Cookie) (*Session, *httptest.ResponseRecorder) {
	t.Helper()
	var seen *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.NotNil(t, seen, "handler must see a session")
	return seen, w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	return nil
}

func TestManager_IssuesCookie(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())

	sess, w := serve(t, m, nil)

	c := sessionCookie(w)
	require.NotNil(t, c)
	assert.Equal(t, sess.ID(), c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestManager_ReusesSession(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())

	first, w := serve(t, m, nil)
	second, w2 := serve(t, m, sessionCookie(w))

	assert.Same(t, first, second)
	assert.Nil(t, sessionCookie(w2), "fresh session needs no cookie refresh")
}

func TestManager_UnknownCookieGetsNewSession(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())

	sess, w := serve(t, m, &http.Cookie{Name: CookieName, Value: "forged"})

	assert.NotEqual(t, "forged", sess.ID())
	require.NotNil(t, sessionCookie(w))
	assert.Equal(t, sess.ID(), sessionCookie(w).Value)
}

func TestManager_RestoresFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	m1 := newTestManager(t, st)
	sess, err := m1.Create(ctx, "test")
	require.NoError(t, err)
	require.NoError(t, sess.SetToken(ctx, "tok"))
	require.NoError(t, sess.SetUser(ctx, User{"email": "a@example.com"}))

	// A second manager over the same store simulates a process restart
	m2 := newTestManager(t, st)
	restored, err := m2.Load(ctx, sess.ID())
	require.NoError(t, err)

	assert.Equal(t, sess.Snapshot(), restored.Snapshot())
}

func TestManager_End(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := newTestManager(t, st)

	sess, w := serve(t, m, nil)
	cookie := sessionCookie(w)
	require.NoError(t, sess.SetToken(ctx, "tok"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	require.NoError(t, m.End(ctx, rec, req, sess))

	assert.False(t, sess.Snapshot().Authenticated())
	_, err := st.GetSession(ctx, sess.ID())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	next, _ := serve(t, m, cookie)
	assert.NotEqual(t, sess.ID(), next.ID())
	assert.False(t, next.Snapshot().Authenticated())
}

func TestManager_SlidingExpiry(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, store.NewMemoryStore())

	now := time.Now()
	m.now = func() time.Time { return now }

	sess, w := serve(t, m, nil)
	cookie := sessionCookie(w)

	// Past half the lifetime the expiry is pushed out and the cookie refreshed
	now = now.Add(40 * time.Minute)
	_, w2 := serve(t, m, cookie)
	require.NotNil(t, sessionCookie(w2))

	got, err := m.store.GetSession(ctx, sess.ID())
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Second)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := newTestManager(t, st)

	now := time.Now()
	m.now = func() time.Time { return now }

	old := &store.Session{ID: "old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, st.CreateSession(ctx, old))
	live, err := m.Create(ctx, "test")
	require.NoError(t, err)

	removed, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = m.Load(ctx, live.ID())
	assert.NoError(t, err)
}

func TestManager_RunSweeperStops(t *testing.T) {
	m := newTestManager(t, store.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunSweeper did not stop after cancel")
	}
}

func TestFromContext_Missing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}
