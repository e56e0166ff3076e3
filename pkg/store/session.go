package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benchtop-io/benchtop/pkg/contextkeys"
)

// Session is a per-request database transaction. Every handler and the
// authentication gate operate through the session bound to their
// request; the session is committed or rolled back exactly once when the
// request finishes.
type Session struct {
	tx     *sql.Tx
	driver string
	done   bool
}

// Begin opens a new session.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{tx: tx, driver: s.driver}, nil
}

// Commit commits the session. Calling it on a finished session is a
// no-op.
func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the session back. Safe to call after Commit, so it can
// sit in a defer as the guaranteed-release path.
func (s *Session) Rollback() {
	if s.done {
		return
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		// Nothing actionable at this point; the transaction is dead
		// either way.
		return
	}
}

// SessionFrom extracts the request-scoped session from the context.
func SessionFrom(ctx context.Context) (*Session, error) {
	session, ok := ctx.Value(contextkeys.SessionKey).(*Session)
	if !ok || session == nil {
		return nil, ErrNoSession
	}
	return session, nil
}

// nowUTC truncates to microseconds so timestamps survive a round trip
// through either database driver unchanged.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// sessionResponseWriter captures the status code so the middleware can
// decide between commit and rollback.
type sessionResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// SessionMiddleware opens a session at the start of each request,
// injects it into the request context, and releases it when the request
// ends: commit when the handler produced a non-5xx response, rollback
// otherwise. Rollback is also the path taken when the handler panics or
// the connection drops; the deferred release guarantees no transaction
// is ever orphaned.
func SessionMiddleware(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Begin(r.Context())
			if err != nil {
				http.Error(w, `{"error":"service unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			defer session.Rollback()

			sw := &sessionResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := contextkeys.WithSession(r.Context(), session)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if sw.statusCode < http.StatusInternalServerError {
				// The response is already on the wire at this point; a
				// failed commit cannot change the status code.
				_ = session.Commit()
			}
		})
	}
}
