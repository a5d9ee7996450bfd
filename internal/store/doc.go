// Package store provides persistent storage for admin browser sessions.
//
// # Architecture
//
// Three interfaces split the concerns:
//
//   - SessionStore: browser sessions with an expiry
//   - ValueStore: string values scoped to one session
//   - ActivityLog: operator logins and product changes
//
// Store combines them. SQLiteStore implements it on modernc.org/sqlite and
// MemoryStore implements it in memory for tests and ":memory:" deployments.
//
// # Data Model
//
// A Session row holds nothing but its ID, the user agent that created it and
// its timestamps. Everything the admin remembers about the operator (backend
// token, user record) lives in session_values keyed by (session_id, key).
// Values reference their session with ON DELETE CASCADE, so deleting or
// expiring a session removes its values in the same statement.
//
// Activity entries stand alone: they name the operator by email and survive
// the session that recorded them.
//
// Timestamps are stored as RFC3339 UTC strings so that expiry checks are
// plain string comparisons.
//
// # Usage
//
//	s, err := store.NewSQLiteStore("/var/lib/stellara/admin.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	err = s.CreateSession(ctx, &store.Session{
//	    ID:        id,
//	    CreatedAt: time.Now(),
//	    ExpiresAt: time.Now().Add(12 * time.Hour),
//	})
//	err = s.SetValue(ctx, id, "token", sealed)
//
// # Error Handling
//
//   - ErrSessionNotFound: session missing or expired
//   - ErrNotFound: no value under the requested key
//   - ErrDuplicateSession: session ID already taken
package store
