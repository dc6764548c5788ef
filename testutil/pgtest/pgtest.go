package pgtest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/require"

	"github.com/Tushar4059x/the-hive-project/eventstore/postgresengine"
)

// DSNEnvVar names the environment variable holding the test database DSN.
const DSNEnvVar = "HIVE_TEST_POSTGRES_DSN"

// DSN returns the test database DSN or skips the test when none is configured.
func DSN(t testing.TB) string {
	t.Helper()

	dsn := os.Getenv(DSNEnvVar)
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL integration test", DSNEnvVar)
	}

	return dsn
}

// SQLDB opens a migrated *sql.DB and closes it when the test ends.
func SQLDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", DSN(t))
	require.NoError(t, err, "opening the test database failed")
	t.Cleanup(func() { _ = db.Close() })

	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(time.Minute)

	require.NoError(t, postgresengine.MigrateSchema(db, nil), "migrating the test database failed")

	return db
}

// SQLX wraps SQLDB for the sqlx adapter.
func SQLX(t testing.TB) *sqlx.DB {
	t.Helper()

	return sqlx.NewDb(SQLDB(t), "postgres")
}

// PGXPool opens a pgx pool against a migrated database and closes it when the test ends.
func PGXPool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	SQLDB(t)

	pool, err := pgxpool.New(context.Background(), DSN(t))
	require.NoError(t, err, "connecting to the test database pool failed")
	t.Cleanup(pool.Close)

	return pool
}

// CleanUpEvents empties the events table and restarts its identity.
func CleanUpEvents(t testing.TB, db *sql.DB) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), "TRUNCATE TABLE events RESTART IDENTITY")
	require.NoError(t, err, "truncating the events table failed")
}
