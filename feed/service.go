package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tushar4059x/the-hive-project/broadcast"
	"github.com/Tushar4059x/the-hive-project/eventstore"
)

const (
	// DefaultHistorySize is the number of events replayed to a new subscriber.
	DefaultHistorySize = 50

	// AgentLogsLimit bounds the per-agent log listing.
	AgentLogsLimit = 100

	// LeaderboardSize is the number of events on the fork leaderboard.
	LeaderboardSize = 5

	forkUpdateType = "fork_update"
)

var (
	// ErrNilEventStore is returned by NewService without a store.
	ErrNilEventStore = errors.New("event store must not be nil")

	// ErrNilHub is returned by NewService without a hub.
	ErrNilHub = errors.New("broadcast hub must not be nil")

	// ErrInvalidHistorySize is returned by WithHistorySize for sizes below one.
	ErrInvalidHistorySize = errors.New("history size must be positive")

	// ErrSubscriberGone is returned by Stream when writing to the subscriber failed.
	ErrSubscriberGone = errors.New("subscriber stopped receiving")
)

// IngestResult is the outcome of a successful Ingest.
type IngestResult struct {
	Event     eventstore.Event
	Receivers int
}

// ForkUpdate is the message published after a fork count changed.
type ForkUpdate struct {
	Type  string                    `json:"type"`
	ID    eventstore.IDInt64        `json:"id"`
	Count eventstore.ForkCountInt64 `json:"count"`
}

// ForkResult is the outcome of a successful Fork.
type ForkResult struct {
	ID        eventstore.IDInt64
	Count     eventstore.ForkCountInt64
	Receivers int
}

// Service implements ingest, fork and subscription on top of a Store and a Hub.
type Service struct {
	store eventstore.Store
	hub   *broadcast.Hub

	// sequencer makes publish order equal id order.
	sequencer sync.Mutex

	historySize      int
	clock            func() time.Time
	logger           eventstore.Logger
	metricsCollector eventstore.MetricsCollector
}

// NewService creates a Service replaying DefaultHistorySize events unless configured otherwise.
func NewService(store eventstore.Store, hub *broadcast.Hub, options ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilEventStore
	}

	if hub == nil {
		return nil, ErrNilHub
	}

	s := &Service{
		store:       store,
		hub:         hub,
		historySize: DefaultHistorySize,
		clock:       time.Now,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Ingest normalizes raw fields into a Candidate, stores it and publishes the stored event.
// Malformed fields are repaired, never rejected; only store failures return an error.
func (s *Service) Ingest(ctx context.Context, fields map[string]any) (IngestResult, error) {
	return s.IngestCandidate(ctx, eventstore.CandidateFromFields(fields, s.clock()))
}

// IngestCandidate stores candidate and publishes the stored event to all subscribers.
func (s *Service) IngestCandidate(ctx context.Context, candidate eventstore.Candidate) (IngestResult, error) {
	start := time.Now()

	s.sequencer.Lock()
	defer s.sequencer.Unlock()

	event, err := s.store.Insert(ctx, candidate)
	if err != nil {
		s.logError(logMsgIngestFailed, err, logAttrAgentID, candidate.AgentID)
		s.recordDuration(metricIngestDuration, time.Since(start), statusError)

		return IngestResult{}, err
	}

	// The event is durable at this point; a failed publish only costs live delivery.
	receivers, publishErr := s.hub.Publish(event.ID, event)
	if publishErr != nil {
		s.logWarn(logMsgPublishFailed, logAttrEventID, event.ID, logAttrError, publishErr.Error())
	}

	s.logInfo(logMsgEventIngested, logAttrEventID, event.ID, logAttrAgentID, event.AgentID, logAttrReceivers, receivers)
	s.incrementCounter(metricEventsIngested, map[string]string{labelLevel: string(event.Level)})
	s.recordDuration(metricIngestDuration, time.Since(start), statusSuccess)

	return IngestResult{Event: event, Receivers: receivers}, nil
}

// Fork increments the fork count of event id and publishes a ForkUpdate.
// It returns eventstore.ErrEventNotFound for unknown ids; nothing is published then.
// Concurrent forks of one event may publish their updates out of order, so clients keep the highest count.
func (s *Service) Fork(ctx context.Context, id eventstore.IDInt64) (ForkResult, error) {
	count, err := s.store.IncrementFork(ctx, id)
	if err != nil {
		if !errors.Is(err, eventstore.ErrEventNotFound) {
			s.logError(logMsgForkFailed, err, logAttrEventID, id)
		}

		return ForkResult{}, err
	}

	receivers, publishErr := s.hub.Publish(0, ForkUpdate{Type: forkUpdateType, ID: id, Count: count})
	if publishErr != nil {
		s.logWarn(logMsgPublishFailed, logAttrEventID, id, logAttrError, publishErr.Error())
	}

	s.logInfo(logMsgEventForked, logAttrEventID, id, logAttrForkCount, count)
	s.incrementCounter(metricForks, nil)

	return ForkResult{ID: id, Count: count, Receivers: receivers}, nil
}

// RecentEvents returns the last limit events, oldest first.
func (s *Service) RecentEvents(ctx context.Context, limit int) (eventstore.Events, error) {
	return s.store.RecentEvents(ctx, limit)
}

// AgentLogs returns the AgentLogsLimit most recent events of agentID, newest first.
func (s *Service) AgentLogs(ctx context.Context, agentID string) (eventstore.Events, error) {
	return s.store.EventsByAgent(ctx, agentID, AgentLogsLimit)
}

// Leaderboard returns the LeaderboardSize most forked events.
func (s *Service) Leaderboard(ctx context.Context) (eventstore.Events, error) {
	return s.store.TopByForks(ctx, LeaderboardSize)
}

// HistorySize returns how many events a new subscription replays.
func (s *Service) HistorySize() int {
	return s.historySize
}
