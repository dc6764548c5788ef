package eventstore

import (
	"errors"
)

var (
	// ErrEventNotFound is returned when an operation targets an event id that was never assigned.
	ErrEventNotFound = errors.New("event not found")

	ErrEmptyEventsTableName  = errors.New("events table name must not be empty")
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	ErrBuildingQueryFailed    = errors.New("building the query failed")
	ErrQueryingEventsFailed   = errors.New("querying events failed")
	ErrInsertingEventFailed   = errors.New("inserting the event failed")
	ErrIncrementingForkFailed = errors.New("incrementing the fork count failed")
	ErrScanningDBRowFailed    = errors.New("scanning the db row failed")
	ErrEncodingExtraFailed    = errors.New("encoding the extra payload failed")
	ErrDecodingExtraFailed    = errors.New("decoding the extra payload failed")
	ErrMigratingSchemaFailed  = errors.New("migrating the database schema failed")
)

// IDInt64 is a type alias for int64, representing the store-assigned id of an Event.
type IDInt64 = int64

// ForkCountInt64 is a type alias for int64, representing the fork counter of an Event.
type ForkCountInt64 = int64
