// Package testdb connects integration tests to a real PostgreSQL database.
// Tests skip themselves when no database URL is configured.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/relay-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

const setupTimeout = 5 * time.Second

// URL returns the first of RELAY_TEST_DB_URL and DATABASE_URL that is set.
func URL() string {
	for _, key := range []string{"RELAY_TEST_DB_URL", "DATABASE_URL"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// Open returns a migrated pool that is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("RELAY_TEST_DB_URL not set, skipping postgres integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "postgres unreachable")
	require.NoError(t, postgres.Migrate(ctx, db, "up", slog.New(slog.NewTextHandler(io.Discard, nil))))

	return db
}

// Tx begins a transaction that is rolled back when the test ends, so rows
// written by one test never leak into another.
func Tx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("rollback: %v", err)
		}
	})
	return tx
}
