package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/eventstore/postgresengine/internal/adapters"
)

const (
	defaultEventTableName = "events"
	dialectPostgres       = "postgres"
	castJsonb             = "?::jsonb"
	exprIncrement         = "? + 1"

	colID           = "id"
	colOccurredAt   = "occurred_at"
	colLevel        = "level"
	colMessage      = "message"
	colAgentID      = "agent_id"
	colStrategyName = "strategy_name"
	colHashrate     = "hashrate"
	colForkCount    = "fork_count"
	colExtra        = "extra"
)

// eventColumns is the column order every SELECT and RETURNING clause uses; scanEvent depends on it.
var eventColumns = []any{
	colID, colOccurredAt, colLevel, colMessage, colAgentID, colStrategyName, colHashrate, colForkCount, colExtra,
}

type sqlQueryString = string

// EventStore is the PostgreSQL implementation of eventstore.Store.
type EventStore struct {
	db               adapters.DBAdapter
	eventTableName   string
	clock            func() time.Time
	logger           eventstore.Logger
	contextualLogger eventstore.ContextualLogger
	metricsCollector eventstore.MetricsCollector
	tracingCollector eventstore.TracingCollector
}

// NewEventStoreFromPGXPool creates a new EventStore using a pgx Pool with optional configuration.
func NewEventStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewPGXAdapter(db), options...)
}

// NewEventStoreFromSQLDB creates a new EventStore using a sql.DB with optional configuration.
func NewEventStoreFromSQLDB(db *sql.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLAdapter(db), options...)
}

// NewEventStoreFromSQLX creates a new EventStore using a sqlx.DB with optional configuration.
func NewEventStoreFromSQLX(db *sqlx.DB, options ...Option) (*EventStore, error) {
	if db == nil {
		return nil, eventstore.ErrNilDatabaseConnection
	}

	return newEventStore(adapters.NewSQLXAdapter(db), options...)
}

func newEventStore(db adapters.DBAdapter, options ...Option) (*EventStore, error) {
	es := &EventStore{
		db:             db,
		eventTableName: defaultEventTableName,
		clock:          time.Now,
	}

	for _, option := range options {
		if err := option(es); err != nil {
			return nil, err
		}
	}

	return es, nil
}

// Ping checks that the database is reachable.
func (es *EventStore) Ping(ctx context.Context) error {
	return es.db.Ping(ctx)
}

// Insert persists the Candidate with a single INSERT ... RETURNING statement.
// The id comes from the identity column, so concurrent inserts never share or skip an id.
func (es *EventStore) Insert(ctx context.Context, candidate eventstore.Candidate) (eventstore.Event, error) {
	candidate = candidate.WithDefaults(es.clock())

	observer, ctx := es.startOperation(ctx, operationInsert, map[string]string{spanAttrAgentID: candidate.AgentID})

	sqlQuery, buildErr := es.buildInsertQuery(candidate)
	if buildErr != nil {
		es.logError(ctx, logMsgBuildInsertQueryFailed, buildErr)
		observer.finishError(errorTypeOf(buildErr))

		return eventstore.Event{}, buildErr
	}

	events, execErr := es.queryEvents(ctx, sqlQuery, operationInsert, eventstore.ErrInsertingEventFailed)
	if execErr != nil {
		observer.finishError(errorTypeOf(execErr))
		return eventstore.Event{}, execErr
	}

	if len(events) != 1 {
		observer.finishError(errorTypeDatabaseExec)
		return eventstore.Event{}, errors.Join(eventstore.ErrInsertingEventFailed, errNoRowReturned)
	}

	event := events[0]
	es.logOperation(ctx, logMsgEventInserted, logAttrEventID, event.ID, logAttrAgentID, event.AgentID)
	observer.finishSuccess(map[string]string{spanAttrEventID: formatInt(event.ID)})

	return event, nil
}

// RecentEvents returns the last limit events, oldest first.
func (es *EventStore) RecentEvents(ctx context.Context, limit int) (eventstore.Events, error) {
	if limit <= 0 {
		return eventstore.Events{}, nil
	}

	observer, ctx := es.startOperation(ctx, operationRecentEvents, map[string]string{spanAttrLimit: formatInt(int64(limit))})

	selectStmt := es.selectEvents().
		Order(goqu.I(colID).Desc()).
		Limit(uint(limit))

	events, err := es.runSelect(ctx, selectStmt, operationRecentEvents)
	if err != nil {
		observer.finishError(errorTypeOf(err))
		return nil, err
	}

	// fetched newest first to let the LIMIT pick the tail, replayed oldest first
	slices.Reverse(events)

	observer.finishRead(len(events))

	return events, nil
}

// EventsByAgent returns up to limit events of agentID, most recent first.
func (es *EventStore) EventsByAgent(ctx context.Context, agentID string, limit int) (eventstore.Events, error) {
	if limit <= 0 {
		return eventstore.Events{}, nil
	}

	observer, ctx := es.startOperation(ctx, operationEventsByAgent, map[string]string{
		spanAttrAgentID: agentID,
		spanAttrLimit:   formatInt(int64(limit)),
	})

	selectStmt := es.selectEvents().
		Where(goqu.C(colAgentID).Eq(agentID)).
		Order(goqu.I(colID).Desc()).
		Limit(uint(limit))

	events, err := es.runSelect(ctx, selectStmt, operationEventsByAgent)
	if err != nil {
		observer.finishError(errorTypeOf(err))
		return nil, err
	}

	observer.finishRead(len(events))

	return events, nil
}

// TopByForks returns up to limit events by fork count descending; equal counts are ordered by ascending id.
func (es *EventStore) TopByForks(ctx context.Context, limit int) (eventstore.Events, error) {
	if limit <= 0 {
		return eventstore.Events{}, nil
	}

	observer, ctx := es.startOperation(ctx, operationTopByForks, map[string]string{spanAttrLimit: formatInt(int64(limit))})

	selectStmt := es.selectEvents().
		Order(goqu.I(colForkCount).Desc(), goqu.I(colID).Asc()).
		Limit(uint(limit))

	events, err := es.runSelect(ctx, selectStmt, operationTopByForks)
	if err != nil {
		observer.finishError(errorTypeOf(err))
		return nil, err
	}

	observer.finishRead(len(events))

	return events, nil
}

// IncrementFork increments the fork count with a single row-level UPDATE ... RETURNING.
// It returns eventstore.ErrEventNotFound if no row matched the id.
func (es *EventStore) IncrementFork(ctx context.Context, id eventstore.IDInt64) (eventstore.ForkCountInt64, error) {
	observer, ctx := es.startOperation(ctx, operationIncrementFork, map[string]string{spanAttrEventID: formatInt(id)})

	updateStmt := goqu.Dialect(dialectPostgres).
		Update(es.eventTableName).
		Set(goqu.Record{colForkCount: goqu.L(exprIncrement, goqu.I(colForkCount))}).
		Where(goqu.C(colID).Eq(id)).
		Returning(colForkCount)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		err := errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
		es.logError(ctx, logMsgBuildUpdateQueryFailed, err)
		observer.finishError(errorTypeBuildQuery)

		return 0, err
	}

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, operationIncrementFork, time.Since(start))

	if queryErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		observer.finishError(errorTypeDatabaseQuery)

		return 0, errors.Join(eventstore.ErrIncrementingForkFailed, queryErr)
	}
	defer es.closeRows(ctx, rows)

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			es.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
			observer.finishError(errorTypeDatabaseQuery)

			return 0, errors.Join(eventstore.ErrIncrementingForkFailed, rowsErr)
		}

		observer.finishError(errorTypeNotFound)

		return 0, eventstore.ErrEventNotFound
	}

	var count eventstore.ForkCountInt64
	if scanErr := rows.Scan(&count); scanErr != nil {
		es.logError(ctx, logMsgScanRowFailed, scanErr)
		observer.finishError(errorTypeRowScan)

		return 0, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
	}

	es.logOperation(ctx, logMsgForkIncremented, logAttrEventID, id, logAttrForkCount, count)
	observer.finishSuccess(map[string]string{spanAttrForkCount: formatInt(count)})

	return count, nil
}

func (es *EventStore) selectEvents() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(es.eventTableName).
		Select(eventColumns...)
}

func (es *EventStore) buildInsertQuery(candidate eventstore.Candidate) (sqlQueryString, error) {
	extraJSON, encodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(candidate.Extra)
	if encodeErr != nil {
		return "", errors.Join(eventstore.ErrEncodingExtraFailed, encodeErr)
	}

	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(es.eventTableName).
		Cols(colOccurredAt, colLevel, colMessage, colAgentID, colStrategyName, colHashrate, colExtra).
		Vals(goqu.Vals{
			candidate.Timestamp,
			string(candidate.Level),
			candidate.Message,
			candidate.AgentID,
			candidate.StrategyName,
			candidate.Hashrate,
			goqu.L(castJsonb, string(extraJSON)),
		}).
		Returning(eventColumns...)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (es *EventStore) runSelect(ctx context.Context, selectStmt *goqu.SelectDataset, operation string) (eventstore.Events, error) {
	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		err := errors.Join(eventstore.ErrBuildingQueryFailed, toSQLErr)
		es.logError(ctx, logMsgBuildSelectQueryFailed, err)

		return nil, err
	}

	return es.queryEvents(ctx, sqlQuery, operation, eventstore.ErrQueryingEventsFailed)
}

// queryEvents executes a statement returning event rows and scans all of them.
// failedErr is the sentinel joined with driver errors so callers can tell reads from writes.
func (es *EventStore) queryEvents(
	ctx context.Context,
	sqlQuery sqlQueryString,
	operation string,
	failedErr error,
) (eventstore.Events, error) {

	start := time.Now()
	rows, queryErr := es.db.Query(ctx, sqlQuery)
	es.logQueryWithDuration(ctx, sqlQuery, operation, time.Since(start))

	if queryErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(failedErr, queryErr)
	}
	defer es.closeRows(ctx, rows)

	events := make(eventstore.Events, 0)
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			es.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, scanErr
		}

		events = append(events, event)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		es.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(failedErr, rowsErr)
	}

	return events, nil
}

func scanEvent(rows adapters.DBRows) (eventstore.Event, error) {
	var event eventstore.Event
	var level string
	var extraJSON []byte

	scanErr := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&level,
		&event.Message,
		&event.AgentID,
		&event.StrategyName,
		&event.Hashrate,
		&event.ForkCount,
		&extraJSON,
	)
	if scanErr != nil {
		return eventstore.Event{}, errors.Join(eventstore.ErrScanningDBRowFailed, scanErr)
	}

	event.Level = eventstore.Level(level)
	event.Extra = make(map[string]any)

	if len(extraJSON) > 0 {
		if decodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(extraJSON, &event.Extra); decodeErr != nil {
			return eventstore.Event{}, errors.Join(eventstore.ErrDecodingExtraFailed, decodeErr)
		}
	}

	return event, nil
}

// closeRows closes database rows and logs a failure instead of returning it.
func (es *EventStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		es.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

var _ eventstore.Store = (*EventStore)(nil)
