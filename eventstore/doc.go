// Package eventstore provides the core types and the storage contract for agent events.
//
// An Event is one persisted unit of agent activity. Its id is assigned exactly once by the
// Store at insert time and defines the durable ordering used for history replay. Apart from
// the fork counter, a stored Event never changes.
//
// Producers are untrusted simulators, so inbound data is repaired instead of rejected:
//   - missing or malformed timestamps fall back to the store time
//   - unknown or missing levels become INFO
//   - a missing agent id becomes "unknown"
//
// Key types:
//   - Candidate: the normalized, not yet stored form of an event
//   - Event: the stored form including id and fork count
//   - Store: the contract implemented by the postgresengine and memengine packages
//
// Common usage pattern:
//
//	candidate := eventstore.CandidateFromFields(fields, time.Now())
//
//	event, err := store.Insert(ctx, candidate)
//	if err != nil {
//		// handle error
//	}
//
//	count, err := store.IncrementFork(ctx, event.ID)
//	if errors.Is(err, eventstore.ErrEventNotFound) {
//		// map to "not found"
//	}
package eventstore
