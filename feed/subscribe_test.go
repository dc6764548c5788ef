package feed_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tushar4059x/the-hive-project/broadcast"
	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/eventstore/memengine"
	"github.com/Tushar4059x/the-hive-project/feed"
	"github.com/Tushar4059x/the-hive-project/testutil/spies"
)

func Test_Subscribe_When_EventArrivesAfterSubscribe_HistoryHoldsEarlierAndLiveHoldsLater(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub)
	ctx := context.Background()

	// arrange
	a, err := service.Ingest(ctx, map[string]any{"agent_id": "Chaos-GPT", "level": "CRITICAL"})
	require.NoError(t, err)

	// act
	f, err := service.Subscribe(ctx)
	require.NoError(t, err)
	defer f.Close()

	b, err := service.Ingest(ctx, map[string]any{"agent_id": "DeepSeek-V3"})
	require.NoError(t, err)

	// assert
	require.Len(t, f.History(), 1)
	assert.Equal(t, a.Event.ID, f.History()[0].ID)
	assert.Equal(t, eventstore.LevelCritical, f.History()[0].Level)
	assert.Equal(t, "Chaos-GPT", f.History()[0].AgentID)

	live := nextLive(t, f)
	assert.Equal(t, b.Event.ID, live.EventID)
	assert.Equal(t, "DeepSeek-V3", decodeEvent(t, live.Payload).AgentID)
	assert.Equal(t, int64(0), f.Skipped())
}

func Test_Subscribe_When_EventCommitsBetweenRegisterAndHistoryRead_DeliversItOnlyOnce(t *testing.T) {
	// setup
	hub := newHub(t)
	inner := memengine.NewEventStore()
	racing := &racingStore{EventStore: inner, hub: hub}
	service := newService(t, racing, hub)
	ctx := context.Background()

	// arrange
	_, err := service.Ingest(ctx, map[string]any{"agent_id": "Chaos-GPT"})
	require.NoError(t, err)
	racing.injectOnNextHistoryRead(eventstore.Candidate{AgentID: "Nexus-Mind"})

	// act
	f, err := service.Subscribe(ctx)
	require.NoError(t, err)
	defer f.Close()

	later, err := service.Ingest(ctx, map[string]any{"agent_id": "DeepSeek-V3"})
	require.NoError(t, err)

	// assert
	require.Len(t, f.History(), 2, "the racing event is part of the history")
	assert.Equal(t, "Nexus-Mind", f.History()[1].AgentID)

	live := nextLive(t, f)
	assert.Equal(t, later.Event.ID, live.EventID, "the live duplicate of the racing event is dropped")
	assert.Equal(t, int64(1), f.Skipped())
}

func Test_Subscribe_When_HistoryIsLargerThanHistorySize_ReplaysOnlyTheNewest(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub, feed.WithHistorySize(3))
	ctx := context.Background()

	// arrange
	for range 10 {
		_, err := service.Ingest(ctx, map[string]any{"agent_id": "a"})
		require.NoError(t, err)
	}

	// act
	f, err := service.Subscribe(ctx)
	require.NoError(t, err)
	defer f.Close()

	// assert
	require.Len(t, f.History(), 3)
	assert.Equal(t, eventstore.IDInt64(8), f.History()[0].ID)
	assert.Equal(t, eventstore.IDInt64(10), f.LastHistoryID())
}

func Test_Subscribe_When_HistoryReadFails_UnregistersTheSubscription(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, &failingStore{err: eventstore.ErrQueryingEventsFailed}, hub)

	// act
	_, err := service.Subscribe(context.Background())

	// assert
	assert.ErrorIs(t, err, eventstore.ErrQueryingEventsFailed)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func Test_Feed_Next_DeliversForkUpdatesEvenForHistoryEvents(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub)
	ctx := context.Background()

	// arrange
	a, err := service.Ingest(ctx, map[string]any{"agent_id": "a"})
	require.NoError(t, err)
	f, err := service.Subscribe(ctx)
	require.NoError(t, err)
	defer f.Close()

	// act
	_, err = service.Fork(ctx, a.Event.ID)
	require.NoError(t, err)

	// assert
	assert.JSONEq(t, `{"type":"fork_update","id":1,"count":1}`, string(nextLive(t, f).Payload))
}

func Test_Feed_Close_IsIdempotent(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub)
	f, err := service.Subscribe(context.Background())
	require.NoError(t, err)

	// act
	f.Close()
	f.Close()

	// assert
	assert.Equal(t, 0, hub.SubscriberCount())
	_, err = f.Next(context.Background())
	assert.ErrorIs(t, err, broadcast.ErrSubscriptionClosed)
}

func Test_Stream_WritesHistoryThenLiveAndUnregistersOnCancel(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// arrange
	_, err := service.Ingest(ctx, map[string]any{"agent_id": "history"})
	require.NoError(t, err)

	lines := make(chan []byte, 10)
	streamErr := make(chan error, 1)

	// act
	go func() {
		streamErr <- service.Stream(ctx, func(line []byte) error {
			lines <- append([]byte(nil), line...)
			return nil
		})
	}()

	first := <-lines
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	_, err = service.Ingest(ctx, map[string]any{"agent_id": "live"})
	require.NoError(t, err)
	second := <-lines
	cancel()

	// assert
	assert.NoError(t, <-streamErr, "a canceled context is a normal end of stream")
	assert.Equal(t, "history", decodeEvent(t, first).AgentID)
	assert.Equal(t, "live", decodeEvent(t, second).AgentID)
	assert.Equal(t, 0, hub.SubscriberCount())
}

func Test_Stream_When_AnIngestCarriedAMillisecondTimestamp_StillReplaysHistory(t *testing.T) {
	// setup
	hub := newHub(t)
	service := newService(t, memengine.NewEventStore(), hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listener, err := hub.Register()
	require.NoError(t, err)
	defer hub.Unregister(listener)

	// arrange
	skewed, err := service.Ingest(ctx, map[string]any{"agent_id": "epoch-ms", "timestamp": 1.7e12})
	require.NoError(t, err)
	_, err = service.Ingest(ctx, map[string]any{"agent_id": "regular"})
	require.NoError(t, err)

	lines := make(chan []byte, 10)
	streamErr := make(chan error, 1)

	// act
	go func() {
		streamErr <- service.Stream(ctx, func(line []byte) error {
			lines <- append([]byte(nil), line...)
			return nil
		})
	}()

	first := <-lines
	second := <-lines
	cancel()

	// assert
	assert.NoError(t, <-streamErr)
	assert.Equal(t, 1, skewed.Receivers)
	assert.LessOrEqual(t, skewed.Event.Timestamp.Year(), 9999)
	assert.Equal(t, "epoch-ms", decodeEvent(t, first).AgentID)
	assert.Equal(t, "regular", decodeEvent(t, second).AgentID)
}

func Test_Stream_When_EmitFails_ReturnsSubscriberGoneAndUnregisters(t *testing.T) {
	// setup
	hub := newHub(t)
	logSpy := spies.NewLogHandlerSpy(false)
	service := newService(t, memengine.NewEventStore(), hub, feed.WithLogger(logSpy.Logger()))
	ctx := context.Background()

	// arrange
	_, err := service.Ingest(ctx, map[string]any{"agent_id": "a"})
	require.NoError(t, err)
	writeErr := errors.New("broken pipe")

	// act
	err = service.Stream(ctx, func([]byte) error { return writeErr })

	// assert
	assert.ErrorIs(t, err, feed.ErrSubscriberGone)
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, 0, hub.SubscriberCount())
	assert.True(t, logSpy.HasLog(slog.LevelInfo, "feed: stream ended"))
	assert.True(t, logSpy.HasLogWithAttr("feed: stream ended", "dropped_frames"))
	assert.True(t, logSpy.HasLogWithAttr("feed: stream ended", "error"))
}

func Test_Stream_When_SubscriberLags_ReturnsLaggedAndUnregisters(t *testing.T) {
	// setup
	hub := newHub(t, broadcast.WithBufferSize(1), broadcast.WithOverflowPolicy(broadcast.DisconnectOnLag))
	service := newService(t, memengine.NewEventStore(), hub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	// act
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- service.Stream(ctx, func([]byte) error {
			once.Do(func() { close(started) })
			<-release
			return nil
		})
	}()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	for range 3 {
		_, err := service.Ingest(ctx, map[string]any{"agent_id": "flood"})
		require.NoError(t, err)
	}
	<-started
	close(release)

	// assert
	assert.ErrorIs(t, <-streamErr, broadcast.ErrSubscriberLagged)
	assert.Equal(t, 0, hub.SubscriberCount())
}

// racingStore commits and publishes one extra event right before the next history read,
// the way a concurrent ingest would between Register and RecentEvents.
type racingStore struct {
	*memengine.EventStore
	hub *broadcast.Hub

	mu     sync.Mutex
	inject *eventstore.Candidate
}

func (s *racingStore) injectOnNextHistoryRead(candidate eventstore.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inject = &candidate
}

func (s *racingStore) RecentEvents(ctx context.Context, limit int) (eventstore.Events, error) {
	s.mu.Lock()
	inject := s.inject
	s.inject = nil
	s.mu.Unlock()

	if inject != nil {
		event, err := s.EventStore.Insert(ctx, *inject)
		if err != nil {
			return nil, err
		}

		if _, err := s.hub.Publish(event.ID, event); err != nil {
			return nil, err
		}
	}

	return s.EventStore.RecentEvents(ctx, limit)
}
