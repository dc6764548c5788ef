package memengine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

const (
	logMsgEventInserted    = "eventstore operation: event inserted"
	logMsgForkIncremented  = "eventstore operation: fork incremented"
	logMsgEncodeExtraError = "failed to copy extra payload"
	logAttrEventID         = "event_id"
	logAttrAgentID         = "agent_id"
	logAttrForkCount       = "fork_count"
	logAttrError           = "error"
)

type record struct {
	event eventstore.Event // ForkCount is not maintained here, see forks
	forks atomic.Int64
}

func (r *record) snapshot() eventstore.Event {
	event := r.event
	event.ForkCount = r.forks.Load()
	event.Extra = cloneExtra(r.event.Extra)

	return event
}

// cloneExtra copies the nested maps and slices of a stored payload, so readers never share them.
// Stored payloads only hold JSON shapes, see deepCopyExtra.
func cloneExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}

	clone := make(map[string]any, len(extra))
	for key, value := range extra {
		clone[key] = cloneValue(value)
	}

	return clone
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneExtra(v)
	case []any:
		clone := make([]any, len(v))
		for i, item := range v {
			clone[i] = cloneValue(item)
		}
		return clone
	default:
		return v
	}
}

// EventStore is an in-memory eventstore.Store.
type EventStore struct {
	mu      sync.RWMutex
	records []*record // records[i] holds the event with id i+1
	clock   func() time.Time
	logger  eventstore.Logger
}

// Option defines a functional option for configuring EventStore.
type Option func(*EventStore)

// WithClock replaces time.Now as the source of default timestamps.
func WithClock(clock func() time.Time) Option {
	return func(es *EventStore) {
		es.clock = clock
	}
}

// WithLogger sets the logger for the EventStore.
func WithLogger(logger eventstore.Logger) Option {
	return func(es *EventStore) {
		es.logger = logger
	}
}

// NewEventStore creates an empty EventStore.
func NewEventStore(options ...Option) *EventStore {
	es := &EventStore{
		records: make([]*record, 0, 1024),
		clock:   time.Now,
	}

	for _, option := range options {
		option(es)
	}

	return es
}

// Insert assigns the next id under the write lock and appends the event.
func (es *EventStore) Insert(ctx context.Context, candidate eventstore.Candidate) (eventstore.Event, error) {
	if err := ctx.Err(); err != nil {
		return eventstore.Event{}, err
	}

	candidate = candidate.WithDefaults(es.clock())

	extra, copyErr := deepCopyExtra(candidate.Extra)
	if copyErr != nil {
		if es.logger != nil {
			es.logger.Error(logMsgEncodeExtraError, logAttrError, copyErr.Error())
		}

		return eventstore.Event{}, copyErr
	}
	candidate.Extra = extra

	es.mu.Lock()
	id := eventstore.IDInt64(len(es.records) + 1)
	rec := &record{event: candidate.ToEvent(id)}
	es.records = append(es.records, rec)
	es.mu.Unlock()

	if es.logger != nil {
		es.logger.Info(logMsgEventInserted, logAttrEventID, id, logAttrAgentID, candidate.AgentID)
	}

	return rec.snapshot(), nil
}

// RecentEvents returns the last limit events, oldest first.
func (es *EventStore) RecentEvents(ctx context.Context, limit int) (eventstore.Events, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		return eventstore.Events{}, nil
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	from := max(len(es.records)-limit, 0)
	events := make(eventstore.Events, 0, len(es.records)-from)

	for _, rec := range es.records[from:] {
		events = append(events, rec.snapshot())
	}

	return events, nil
}

// EventsByAgent returns up to limit events of agentID, most recent first.
func (es *EventStore) EventsByAgent(ctx context.Context, agentID string, limit int) (eventstore.Events, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make(eventstore.Events, 0)
	if limit <= 0 {
		return events, nil
	}

	es.mu.RLock()
	defer es.mu.RUnlock()

	for i := len(es.records) - 1; i >= 0 && len(events) < limit; i-- {
		if es.records[i].event.AgentID == agentID {
			events = append(events, es.records[i].snapshot())
		}
	}

	return events, nil
}

// TopByForks returns up to limit events by fork count descending, ties by ascending id.
func (es *EventStore) TopByForks(ctx context.Context, limit int) (eventstore.Events, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		return eventstore.Events{}, nil
	}

	es.mu.RLock()
	events := make(eventstore.Events, 0, len(es.records))
	for _, rec := range es.records {
		events = append(events, rec.snapshot())
	}
	es.mu.RUnlock()

	// events are in ascending id order, so a stable sort keeps lower ids first on equal counts
	slices.SortStableFunc(events, func(a, b eventstore.Event) int {
		switch {
		case a.ForkCount > b.ForkCount:
			return -1
		case a.ForkCount < b.ForkCount:
			return 1
		default:
			return 0
		}
	})

	return events[:min(limit, len(events))], nil
}

// IncrementFork atomically increments the fork counter of one event.
// The read lock only guards the lookup, the increment itself is a per-event atomic.
func (es *EventStore) IncrementFork(ctx context.Context, id eventstore.IDInt64) (eventstore.ForkCountInt64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	es.mu.RLock()
	var rec *record
	if id >= 1 && id <= eventstore.IDInt64(len(es.records)) {
		rec = es.records[id-1]
	}
	es.mu.RUnlock()

	if rec == nil {
		return 0, eventstore.ErrEventNotFound
	}

	count := rec.forks.Add(1)

	if es.logger != nil {
		es.logger.Debug(logMsgForkIncremented, logAttrEventID, id, logAttrForkCount, count)
	}

	return count, nil
}

// Len returns the number of stored events.
func (es *EventStore) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	return len(es.records)
}

// deepCopyExtra detaches the stored payload from the caller's map by a JSON round trip,
// which also reduces the values to the JSON-like shapes the PostgreSQL engine would return.
func deepCopyExtra(extra map[string]any) (map[string]any, error) {
	encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(extra)
	if err != nil {
		return nil, errors.Join(eventstore.ErrEncodingExtraFailed, err)
	}

	decoded := make(map[string]any)
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(encoded, &decoded); err != nil {
		return nil, errors.Join(eventstore.ErrDecodingExtraFailed, err)
	}

	return decoded, nil
}

var _ eventstore.Store = (*EventStore)(nil)
