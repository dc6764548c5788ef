package eventstore

import (
	"context"
)

// Store is the durable, append-only log of agent events.
//
// Implementations must assign ids from a single global sequence, even under concurrent inserts,
// and must make IncrementFork atomic per id without serializing increments of unrelated ids.
type Store interface {
	// Insert assigns the next id and persists the Candidate atomically.
	// Empty Candidate fields are defaulted, see Candidate.WithDefaults.
	Insert(ctx context.Context, candidate Candidate) (Event, error)

	// RecentEvents returns the last limit events in ascending id order (oldest first).
	RecentEvents(ctx context.Context, limit int) (Events, error)

	// EventsByAgent returns up to limit events of one agent, most recent first.
	EventsByAgent(ctx context.Context, agentID string, limit int) (Events, error)

	// TopByForks returns up to limit events ordered by fork count descending, ties by ascending id.
	TopByForks(ctx context.Context, limit int) (Events, error)

	// IncrementFork atomically increments the fork count and returns the new value.
	// It returns ErrEventNotFound if no event with that id exists.
	IncrementFork(ctx context.Context, id IDInt64) (ForkCountInt64, error)
}
