// Package store provides SQL-backed persistence for users, tokens, and
// projects.
//
// All reads and writes go through a Session, a thin wrapper over a
// database transaction. The HTTP layer opens one session per request
// (see SessionMiddleware), stashes it in the request context, and
// guarantees commit or rollback when the request ends. No session is
// ever shared across concurrent requests, and the package keeps no
// in-process cache of principals or tokens.
//
// Two drivers are supported: PostgreSQL (lib/pq) for production and
// SQLite (mattn/go-sqlite3) for development and tests. Schema
// migrations are versioned in-code and applied at startup.
package store
