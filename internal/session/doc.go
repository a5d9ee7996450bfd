// Package session keeps the operator's backend credentials for one browser
// session.
//
// A Session holds the bearer token returned by the backend login and an
// opaque user record. It is the explicit context object passed to every
// view that talks to the backend: handlers get it from the request context
// with FromContext, never from a package global.
//
// # Persistence
//
// Token and user are persisted under the keys "token" and "user" in the
// session's Storage. Every SetToken and SetUser writes storage first and
// updates memory only when the write succeeded, so a Session restored from
// storage always reproduces the last in-memory state. Clearing the token
// clears the user as well.
//
// When a secret is configured the token is sealed with NaCl secretbox
// before it is stored. A stored token that cannot be unsealed, and a stored
// user that is not a JSON object, restore as absent instead of failing.
//
// # Manager
//
// Manager maps the stellara_session cookie to a Session backed by a
// store.Store. It issues new sessions on demand, slides the expiry forward
// on use, ends sessions on logout, and sweeps expired sessions on an
// interval. Live sessions are cached so transient flash notifications and
// per-view state survive between requests.
package session
