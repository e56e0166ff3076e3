package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchtop-io/benchtop/pkg/auth"
)

// openSQLite gives each test an isolated in-memory database with the
// full schema applied.
func openSQLite(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// In-memory SQLite vanishes when its last connection closes; keep a
	// single one.
	db.SetMaxOpenConns(1)

	st := NewWithDB(db, DriverSQLite)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestStore_Migrate_Idempotent(t *testing.T) {
	st := openSQLite(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestStore_Migrate_FullSchemaRoundTrip(t *testing.T) {
	st := openSQLite(t)
	ctx := context.Background()

	session, err := st.Begin(ctx)
	require.NoError(t, err)
	defer session.Rollback()

	user := &auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "digest"}
	require.NoError(t, session.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	token := &auth.Token{
		TokenHash:      "aaaa",
		UserID:         user.ID,
		ExpirationDate: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, session.CreateToken(ctx, token))

	project := &Project{Name: "spectrometer", OwnerID: user.ID}
	require.NoError(t, session.CreateProject(ctx, project))

	require.NoError(t, session.Commit())

	// Reads in a fresh session see the committed rows.
	session, err = st.Begin(ctx)
	require.NoError(t, err)
	defer session.Rollback()

	found, err := session.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	current, err := session.CurrentToken(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token.ID, current.ID)

	_, err = session.FindProjectByID(ctx, project.ID)
	assert.NoError(t, err)
}

func TestStore_Migrate_DuplicateUsernameRejected(t *testing.T) {
	st := openSQLite(t)
	ctx := context.Background()

	session, err := st.Begin(ctx)
	require.NoError(t, err)
	defer session.Rollback()

	first := &auth.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, session.CreateUser(ctx, first))

	dup := &auth.User{Username: "alice", Email: "other@x.com", PasswordHash: "h"}
	err = session.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestStore_TokensSurviveRevocation(t *testing.T) {
	// Revocation must never delete the row; the history stays queryable.
	st := openSQLite(t)
	ctx := context.Background()

	session, err := st.Begin(ctx)
	require.NoError(t, err)
	defer session.Rollback()

	user := &auth.User{Username: "bob", Email: "b@x.com", PasswordHash: "h"}
	require.NoError(t, session.CreateUser(ctx, user))

	token := &auth.Token{TokenHash: "bbbb", UserID: user.ID, ExpirationDate: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, session.CreateToken(ctx, token))
	require.NoError(t, session.RevokeToken(ctx, token.ID, time.Now()))

	found, err := session.FindTokenByHash(ctx, "bbbb")
	require.NoError(t, err)
	assert.False(t, found.Active(time.Now().Add(time.Second)))

	count, err := session.CountTokensForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
