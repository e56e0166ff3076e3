package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// testServer is a fully wired API over in-memory databases. The audit
// trail uses its own database handle, matching production, where audit
// writes must not ride the request transaction.
type testServer struct {
	srv   *Server
	store *store.Store
	audit *audit.DBLogger
}

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st := store.NewWithDB(openMemoryDB(t), store.DriverSQLite)
	require.NoError(t, st.Migrate(context.Background()))

	auditLogger, err := audit.NewDBLogger(openMemoryDB(t), store.DriverSQLite)
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	srv := NewServer(ServerOptions{
		Store:      st,
		Logger:     logger,
		Audit:      auditLogger,
		BcryptCost: 4,
	})

	return &testServer{srv: srv, store: st, audit: auditLogger}
}

// seedUser creates an account directly in the store, bypassing the
// registration endpoint so tests can mint administrators.
func (ts *testServer) seedUser(t *testing.T, username, password string, isAdmin bool) *auth.User {
	t.Helper()

	digest, err := auth.NewPasswordHasher(4).Hash(password)
	require.NoError(t, err)

	session, err := ts.store.Begin(context.Background())
	require.NoError(t, err)
	user := &auth.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: digest,
		IsAdmin:      isAdmin,
	}
	require.NoError(t, session.CreateUser(context.Background(), user))
	require.NoError(t, session.Commit())
	return user
}

// seedToken inserts a token row directly, for cases the API cannot
// produce, like an already expired token.
func (ts *testServer) seedToken(t *testing.T, userID int64, expiration time.Time) string {
	t.Helper()

	raw, hash := auth.NewTokenGenerator().Generate()
	session, err := ts.store.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, session.CreateToken(context.Background(), &auth.Token{
		UserID:         userID,
		TokenHash:      hash,
		ExpirationDate: expiration.UTC(),
	}))
	require.NoError(t, session.Commit())
	return raw
}

// request performs an HTTP request against the server. Empty username
// leaves the request unauthenticated.
func (ts *testServer) request(t *testing.T, method, path, username, password string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	r := httptest.NewRequest(method, path, reader)
	if username != "" {
		r.SetBasicAuth(username, password)
	}
	w := httptest.NewRecorder()
	ts.srv.ServeHTTP(w, r)
	return w
}

// rawRequest sends a verbatim body, for malformed payload cases.
func (ts *testServer) rawRequest(t *testing.T, method, path, username, password, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if username != "" {
		r.SetBasicAuth(username, password)
	}
	w := httptest.NewRecorder()
	ts.srv.ServeHTTP(w, r)
	return w
}

// issueToken logs in with a password and returns the raw token.
func (ts *testServer) issueToken(t *testing.T, username, password string) string {
	t.Helper()

	w := ts.request(t, "POST", "/tokens", username, password, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["error"]
}
