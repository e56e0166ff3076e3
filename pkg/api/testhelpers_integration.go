//go:build integration

package api

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// SetupPostgresContainer starts a throwaway PostgreSQL container, runs
// the migrations, and returns a connected handle plus its connection
// string. The cleanup function closes the handle and terminates the
// container.
//
// Usage:
//
//	db, connStr, cleanup := SetupPostgresContainer(t)
//	defer cleanup()
func SetupPostgresContainer(t *testing.T) (*sql.DB, string, func()) {
	t.Helper()

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("benchtop_test"),
		postgres.WithUsername("benchtop"),
		postgres.WithPassword("benchtop_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	st := store.NewWithDB(db, store.DriverPostgres)
	require.NoError(t, st.Migrate(ctx))

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}

		// A fresh context, because the test's context may already be
		// cancelled by the time cleanup runs.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return db, connStr, cleanup
}

// newIntegrationServer wires a full server over the container database.
// The audit trail shares the database but not the request transaction,
// so it gets its own handle.
func newIntegrationServer(t *testing.T, db *sql.DB, connStr string) *testServer {
	t.Helper()

	st := store.NewWithDB(db, store.DriverPostgres)

	auditDB, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { auditDB.Close() })

	auditLogger, err := audit.NewDBLogger(auditDB, store.DriverPostgres)
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
