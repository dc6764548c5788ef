package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/broadcast"
	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// Feed is one subscriber's view: a fixed history followed by live frames.
// Close must be called on every exit path; it is idempotent.
type Feed struct {
	history       eventstore.Events
	lastHistoryID eventstore.IDInt64
	sub           *broadcast.Subscription
	hub           *broadcast.Hub
	skipped       atomic.Int64
	closeOnce     sync.Once
}

// Subscribe registers a subscription and then reads the history.
// Events committed in between show up in both; Feed.Next drops the live copy.
func (s *Service) Subscribe(ctx context.Context) (*Feed, error) {
	sub, err := s.hub.Register()
	if err != nil {
		return nil, err
	}

	history, err := s.store.RecentEvents(ctx, s.historySize)
	if err != nil {
		s.hub.Unregister(sub)
		s.logError(logMsgHistoryFailed, err, logAttrSubscriptionID, sub.ID().String())

		return nil, err
	}

	f := &Feed{history: history, sub: sub, hub: s.hub}
	if len(history) > 0 {
		f.lastHistoryID = history[len(history)-1].ID
	}

	s.logInfo(logMsgSubscribed, logAttrSubscriptionID, sub.ID().String(), logAttrHistory, len(history))

	return f, nil
}

// History returns the replayed events, oldest first.
func (f *Feed) History() eventstore.Events {
	return f.history
}

// LastHistoryID is the id of the newest history event, or 0 without history.
func (f *Feed) LastHistoryID() eventstore.IDInt64 {
	return f.lastHistoryID
}

// Next returns the next live frame that is not already part of the history.
// Frames without an event id, such as fork updates, are always returned.
func (f *Feed) Next(ctx context.Context) (broadcast.Frame, error) {
	for {
		frame, err := f.sub.Next(ctx)
		if err != nil {
			return broadcast.Frame{}, err
		}

		if frame.EventID != 0 && frame.EventID <= f.lastHistoryID {
			f.skipped.Add(1)
			continue
		}

		return frame, nil
	}
}

// Skipped returns how many live frames were dropped as duplicates of history.
func (f *Feed) Skipped() int64 {
	return f.skipped.Load()
}

// Dropped returns how many frames the hub discarded because this feed fell behind.
func (f *Feed) Dropped() uint64 {
	return f.sub.Dropped()
}

// Close unregisters the subscription.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.hub.Unregister(f.sub)
	})
}

// Stream replays the history and then live frames to emit, one JSON document per call,
// until ctx is done or the subscription ends. The subscription is unregistered on return.
// A canceled ctx is a normal end and returns nil; emit failures return ErrSubscriberGone.
func (s *Service) Stream(ctx context.Context, emit func(line []byte) error) error {
	f, err := s.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	s.incrementCounter(metricStreamsOpened, nil)
	defer s.incrementCounter(metricStreamsClosed, nil)

	for _, event := range f.History() {
		line, encodeErr := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
		if encodeErr != nil {
			s.logStreamEnd(f, encodeErr)
			return errors.Join(broadcast.ErrEncodingFrameFailed, encodeErr)
		}

		if emitErr := emit(line); emitErr != nil {
			s.logStreamEnd(f, emitErr)
			return errors.Join(ErrSubscriberGone, emitErr)
		}
	}

	for {
		frame, nextErr := f.Next(ctx)
		if nextErr != nil {
			if ctx.Err() != nil {
				s.logStreamEnd(f, nil)
				return nil
			}

			s.logStreamEnd(f, nextErr)

			return nextErr
		}

		if emitErr := emit(frame.Payload); emitErr != nil {
			s.logStreamEnd(f, emitErr)
			return errors.Join(ErrSubscriberGone, emitErr)
		}
	}
}

func (s *Service) logStreamEnd(f *Feed, cause error) {
	args := []any{
		logAttrSubscriptionID, f.sub.ID().String(),
		logAttrSkipped, f.Skipped(),
		logAttrDropped, f.Dropped(),
	}

	if cause != nil {
		args = append(args, logAttrError, cause.Error())
	}

	s.logInfo(logMsgStreamEnded, args...)
}
