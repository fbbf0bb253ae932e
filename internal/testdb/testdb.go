// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Tests using it skip automatically when DATABASE_URL
// is not set, so the unit suite stays runnable without infrastructure.
package testdb

import (
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier-api/migrations"
)

// TestTimeout is the default timeout for test database operations.
const TestTimeout = 5 * time.Second

// URL returns the test database URL, or empty when integration tests
// cannot run.
func URL() string {
	return os.Getenv("DATABASE_URL")
}

// Get opens the test database and applies the embedded migrations.
// It skips the test when DATABASE_URL is not set and closes the connection
// when the test finishes.
func Get(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	goose.SetLogger(&testGooseLogger{t: t})
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."), "failed to run migrations")

	return db
}

// WithTx runs fn inside a transaction and rolls it back afterwards, keeping
// tests isolated from each other.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// testGooseLogger routes goose output through the test log.
type testGooseLogger struct {
	t *testing.T
}

func (l *testGooseLogger) Fatalf(format string, v ...interface{}) {
	l.t.Fatalf(format, v...)
}

func (l *testGooseLogger) Printf(format string, v ...interface{}) {
	l.t.Logf(format, v...)
}
