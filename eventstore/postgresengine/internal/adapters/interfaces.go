package adapters

import "context"

// DBAdapter is the database surface the event store needs.
// All statements arrive fully interpolated, so no argument lists are passed.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Ping(ctx context.Context) error
}

// DBRows is a forward-only cursor over query results.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}
