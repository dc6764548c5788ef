package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Frame is one serialized message as delivered to subscribers.
type Frame struct {
	// EventID is the store id of the event carried by the frame, or 0 for frames
	// that do not introduce a new event (fork updates, notices).
	EventID int64

	// Payload is a single JSON document without a trailing newline.
	Payload []byte
}

// Subscription is the handle of one registered subscriber.
// The frame channel is never closed; Done is closed when the subscription ends.
type Subscription struct {
	id      uuid.UUID
	frames  chan Frame
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
	err    error
}

func newSubscription(bufferSize int) *Subscription {
	return &Subscription{
		id:     uuid.New(),
		frames: make(chan Frame, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Frames exposes the buffered frames for select loops. Prefer Next, which also observes Done.
func (s *Subscription) Frames() <-chan Frame {
	return s.frames
}

// Done is closed once the subscription was unregistered, disconnected for lagging, or the hub closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many frames the DropOldest policy discarded from this subscription.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Err returns why the subscription ended: ErrSubscriptionClosed, ErrSubscriberLagged or ErrHubClosed.
// It returns nil while the subscription is active.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Next returns the next frame, blocking until one is buffered, the subscription ends, or ctx is done.
// Frames buffered before the subscription ended are still returned before its error.
func (s *Subscription) Next(ctx context.Context) (Frame, error) {
	select {
	case frame := <-s.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-s.frames:
		return frame, nil
	case <-s.done:
		select {
		case frame := <-s.frames:
			return frame, nil
		default:
			return Frame{}, s.Err()
		}
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// deliver enqueues frame without blocking. It reports whether the frame was enqueued,
// how many buffered frames were discarded, and whether the subscriber must be disconnected.
func (s *Subscription) deliver(frame Frame, policy OverflowPolicy) (enqueued bool, dropped int, lagged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, 0, false
	}

	select {
	case s.frames <- frame:
		return true, 0, false
	default:
	}

	if policy == DisconnectOnLag {
		s.closeLocked(ErrSubscriberLagged)
		return false, 0, true
	}

	// The consumer may drain concurrently, so the eviction can find the buffer empty.
	// Only deliver sends under s.mu, so the second send always finds room.
	select {
	case <-s.frames:
		dropped = 1
		s.dropped.Add(1)
	default:
	}

	select {
	case s.frames <- frame:
		return true, dropped, false
	default:
		return false, dropped, false
	}
}

// close ends the subscription with err; only the first call has an effect.
func (s *Subscription) close(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeLocked(err)
}

func (s *Subscription) closeLocked(err error) bool {
	if s.closed {
		return false
	}

	s.closed = true
	s.err = err
	close(s.done)

	return true
}
