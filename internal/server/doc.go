// Package server assembles the Stellara admin process.
//
// # Overview
//
// New builds every long-lived component from a config.Config:
//
//   - the session store (SQLite, or in memory for ":memory:")
//   - the session.Manager that maps cookies to sessions
//   - the backend.Client with its Prometheus collectors
//   - the catalog summary service and the submit guard
//   - the webadmin.Admin UI
//
// # HTTP Surface
//
//	GET /health        liveness
//	GET /health/ready  backend reachability
//	GET /metrics       Prometheus (when metrics.enabled; path configurable)
//	/                  admin UI
//
// Every response carries an X-Request-ID header.
//
// # Lifecycle
//
// Run listens on server.http_addr, or on a tsnet node when tailscale is
// enabled, and serves until its context is canceled. An expired session
// sweep runs alongside the HTTP server. On shutdown the HTTP server drains
// for up to five seconds before the store and the tailnet node are closed.
package server
