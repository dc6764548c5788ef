package postgresengine_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Tushar4059x/the-hive-project/eventstore/postgresengine"
)

var eventRowColumns = []string{
	"id", "occurred_at", "level", "message", "agent_id", "strategy_name", "hashrate", "fork_count", "extra",
}

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock")

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		_ = db.Close()
	})

	return db, mock
}

func newMockedEventStore(t *testing.T, options ...postgresengine.Option) (*postgresengine.EventStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newMockDB(t)

	es, err := postgresengine.NewEventStoreFromSQLDB(db, options...)
	require.NoError(t, err, "creating the event store failed")

	return es, mock
}

func addEventRow(rows *sqlmock.Rows, id int64, agentID string, forks int64, occurredAt time.Time) *sqlmock.Rows {
	return rows.AddRow(id, occurredAt, "INFO", "msg", agentID, "Unknown", "0 H/s", forks, []byte(`{}`))
}
