package memengine_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/eventstore/memengine"
)

func givenEventsWereInserted(t testing.TB, es *memengine.EventStore, count int, agentID string) eventstore.Events {
	t.Helper()

	inserted := make(eventstore.Events, 0, count)
	for i := 0; i < count; i++ {
		event, err := es.Insert(context.Background(), eventstore.Candidate{
			AgentID: agentID,
			Message: fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err, "error in arranging test data")
		inserted = append(inserted, event)
	}

	return inserted
}

func Test_Insert_AssignsIDsAndDefaults(t *testing.T) {
	// setup
	fakeClock := time.Unix(1700000000, 0).UTC()
	es := memengine.NewEventStore(memengine.WithClock(func() time.Time { return fakeClock }))

	// act
	first, err1 := es.Insert(context.Background(), eventstore.Candidate{})
	second, err2 := es.Insert(context.Background(), eventstore.Candidate{AgentID: "Chaos-GPT", Level: eventstore.LevelCritical})

	// assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, eventstore.IDInt64(1), first.ID)
	assert.Equal(t, eventstore.IDInt64(2), second.ID)
	assert.Equal(t, fakeClock, first.Timestamp)
	assert.Equal(t, eventstore.LevelInfo, first.Level)
	assert.Equal(t, eventstore.DefaultAgentID, first.AgentID)
	assert.Equal(t, eventstore.LevelCritical, second.Level)
	assert.Equal(t, eventstore.ForkCountInt64(0), second.ForkCount)
}

func Test_Insert_When_CalledConcurrently_IDsAreContiguous(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	const numInserts = 500

	// act
	ids := make(chan eventstore.IDInt64, numInserts)
	var wg sync.WaitGroup
	for i := 0; i < numInserts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event, err := es.Insert(context.Background(), eventstore.Candidate{Message: "concurrent"})
			assert.NoError(t, err)
			ids <- event.ID
		}()
	}
	wg.Wait()
	close(ids)

	// assert
	collected := make([]int, 0, numInserts)
	for id := range ids {
		collected = append(collected, int(id))
	}
	sort.Ints(collected)

	require.Len(t, collected, numInserts)
	for i, id := range collected {
		assert.Equal(t, i+1, id, "ids must form a contiguous run without gaps or duplicates")
	}
}

func Test_Insert_DetachesTheExtraPayload(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	extra := map[string]any{"visuals": map[string]any{"pulse": true}}

	// act
	event, err := es.Insert(context.Background(), eventstore.Candidate{Extra: extra})
	extra["visuals"].(map[string]any)["pulse"] = false

	// assert
	require.NoError(t, err)
	recent, err := es.RecentEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"visuals": map[string]any{"pulse": true}}, recent[0].Extra)
	assert.Equal(t, map[string]any{"visuals": map[string]any{"pulse": true}}, event.Extra)
}

func Test_RecentEvents_When_ANestedValueOfAReturnedEventIsChanged_TheStoredEventStaysIntact(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	ctx := context.Background()

	// arrange
	inserted, err := es.Insert(ctx, eventstore.Candidate{Extra: map[string]any{
		"visuals": map[string]any{"color": "red"},
		"tags":    []any{"alpha", map[string]any{"beta": 1.0}},
	}})
	require.NoError(t, err)

	// act
	inserted.Extra["visuals"].(map[string]any)["color"] = "MUTATED"
	first, err := es.RecentEvents(ctx, 1)
	require.NoError(t, err)
	first[0].Extra["tags"].([]any)[1].(map[string]any)["beta"] = 2.0

	// assert
	again, err := es.RecentEvents(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "red", again[0].Extra["visuals"].(map[string]any)["color"])
	assert.Equal(t, 1.0, again[0].Extra["tags"].([]any)[1].(map[string]any)["beta"])
}

func Test_Insert_When_TheContextIsCanceled(t *testing.T) {
	es := memengine.NewEventStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := es.Insert(ctx, eventstore.Candidate{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, es.Len())
}

func Test_RecentEvents_ReturnsTheLastEventsOldestFirst(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	inserted := givenEventsWereInserted(t, es, 10, "DeepSeek-V3")

	// act
	recent, err := es.RecentEvents(context.Background(), 4)

	// assert
	require.NoError(t, err)
	require.Len(t, recent, 4)
	for i, event := range recent {
		assert.Equal(t, inserted[6+i].ID, event.ID)
		assert.Equal(t, inserted[6+i].Message, event.Message)
	}
}

func Test_RecentEvents_When_FewerEventsThanTheLimitExist(t *testing.T) {
	es := memengine.NewEventStore()
	givenEventsWereInserted(t, es, 3, "DeepSeek-V3")

	recent, err := es.RecentEvents(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, eventstore.IDInt64(1), recent[0].ID)
	assert.Equal(t, eventstore.IDInt64(3), recent[2].ID)
}

func Test_RecentEvents_When_TheLimitIsNotPositive(t *testing.T) {
	es := memengine.NewEventStore()
	givenEventsWereInserted(t, es, 3, "DeepSeek-V3")

	recent, err := es.RecentEvents(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, recent)
}

func Test_EventsByAgent_ReturnsMostRecentFirst(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	for i := 0; i < 6; i++ {
		agentID := "Chaos-GPT"
		if i%2 == 1 {
			agentID = "Nexus-Mind"
		}
		givenEventsWereInserted(t, es, 1, agentID)
	}

	// act
	events, err := es.EventsByAgent(context.Background(), "Nexus-Mind", 2)

	// assert
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, eventstore.IDInt64(6), events[0].ID)
	assert.Equal(t, eventstore.IDInt64(4), events[1].ID)
}

func Test_EventsByAgent_When_TheAgentIsUnknown(t *testing.T) {
	es := memengine.NewEventStore()
	givenEventsWereInserted(t, es, 3, "Chaos-GPT")

	events, err := es.EventsByAgent(context.Background(), "nobody", 10)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func Test_IncrementFork_When_CalledConcurrently_NoUpdateIsLost(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	inserted := givenEventsWereInserted(t, es, 2, "Chaos-GPT")
	const numForks = 200

	// act
	var wg sync.WaitGroup
	for i := 0; i < numForks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := es.IncrementFork(context.Background(), inserted[0].ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// assert
	count, err := es.IncrementFork(context.Background(), inserted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, eventstore.ForkCountInt64(numForks+1), count)

	other, err := es.RecentEvents(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, eventstore.ForkCountInt64(0), other[0].ForkCount, "unrelated events must not be touched")
}

func Test_IncrementFork_When_TheEventDoesNotExist(t *testing.T) {
	es := memengine.NewEventStore()
	givenEventsWereInserted(t, es, 2, "Chaos-GPT")

	for _, id := range []eventstore.IDInt64{0, -1, 3, 1000} {
		for attempt := 0; attempt < 3; attempt++ {
			_, err := es.IncrementFork(context.Background(), id)
			assert.ErrorIs(t, err, eventstore.ErrEventNotFound, "id %d", id)
		}
	}
}

func Test_TopByForks_SortsDescendingWithStableTieBreak(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	forkCounts := []int{3, 1, 4, 1, 5, 9, 2, 6}
	inserted := givenEventsWereInserted(t, es, len(forkCounts), "Chaos-GPT")
	for i, forks := range forkCounts {
		for j := 0; j < forks; j++ {
			_, err := es.IncrementFork(context.Background(), inserted[i].ID)
			require.NoError(t, err, "error in arranging test data")
		}
	}

	// act
	top, err := es.TopByForks(context.Background(), 5)

	// assert
	require.NoError(t, err)
	require.Len(t, top, 5)

	actualIDs := make([]eventstore.IDInt64, 0, len(top))
	actualForks := make([]eventstore.ForkCountInt64, 0, len(top))
	for _, event := range top {
		actualIDs = append(actualIDs, event.ID)
		actualForks = append(actualForks, event.ForkCount)
	}
	assert.Equal(t, []eventstore.IDInt64{6, 8, 5, 3, 1}, actualIDs)
	assert.Equal(t, []eventstore.ForkCountInt64{9, 6, 5, 4, 3}, actualForks)
}

func Test_TopByForks_When_CountsAreEqual_LowerIDComesFirst(t *testing.T) {
	// setup
	es := memengine.NewEventStore()
	inserted := givenEventsWereInserted(t, es, 4, "Chaos-GPT")
	for _, event := range inserted {
		_, err := es.IncrementFork(context.Background(), event.ID)
		require.NoError(t, err, "error in arranging test data")
	}

	// act
	top, err := es.TopByForks(context.Background(), 10)

	// assert
	require.NoError(t, err)
	require.Len(t, top, 4)
	for i, event := range top {
		assert.Equal(t, eventstore.IDInt64(i+1), event.ID)
	}
}
