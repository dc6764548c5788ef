package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// DefaultBufferSize is the per-subscription buffer used when WithBufferSize is not given.
const DefaultBufferSize = 256

var (
	// ErrHubClosed is returned by Register and Publish after Close, and ends open subscriptions.
	ErrHubClosed = errors.New("broadcast hub closed")

	// ErrSubscriptionClosed ends a subscription removed with Unregister.
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrSubscriberLagged ends a subscription whose buffer overflowed under DisconnectOnLag.
	ErrSubscriberLagged = errors.New("subscriber lagged behind and was disconnected")

	// ErrEncodingFrameFailed is returned when a published message cannot be serialized.
	ErrEncodingFrameFailed = errors.New("encoding frame failed")

	// ErrInvalidBufferSize is returned by WithBufferSize for sizes below one.
	ErrInvalidBufferSize = errors.New("subscriber buffer size must be positive")
)

// Hub is the registry of active subscriptions. The zero value is not usable; use NewHub.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscription
	closed      bool

	bufferSize       int
	policy           OverflowPolicy
	logger           eventstore.Logger
	metricsCollector eventstore.MetricsCollector
}

// NewHub creates a Hub with DefaultBufferSize and the DropOldest policy unless options say otherwise.
func NewHub(options ...Option) (*Hub, error) {
	h := &Hub{
		subscribers: make(map[uuid.UUID]*Subscription),
		bufferSize:  DefaultBufferSize,
		policy:      DropOldest,
	}

	for _, option := range options {
		if err := option(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Register adds a new subscription. Frames published after Register returns are delivered to it.
func (h *Hub) Register() (*Subscription, error) {
	sub := newSubscription(h.bufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subscribers[sub.id] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logInfo(logMsgSubscriberRegistered, logAttrSubscriptionID, sub.id.String(), logAttrSubscribers, count)
	h.recordSubscribers(count)

	return sub, nil
}

// Unregister removes sub and ends it with ErrSubscriptionClosed. It is idempotent and safe to call
// concurrently with Publish; once it returns, no further frame is enqueued to sub.
func (h *Hub) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	if h.remove(sub) {
		count := h.SubscriberCount()
		h.logInfo(logMsgSubscriberUnregistered, logAttrSubscriptionID, sub.id.String(), logAttrSubscribers, count)
		h.recordSubscribers(count)
	}

	sub.close(ErrSubscriptionClosed)
}

// Publish serializes message once and delivers it to every registered subscription.
// eventID is carried on the frame for history deduplication; pass 0 for frames without a new event.
// It returns the number of subscriptions the frame was enqueued to.
func (h *Hub) Publish(eventID int64, message any) (int, error) {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(message)
	if err != nil {
		return 0, errors.Join(ErrEncodingFrameFailed, err)
	}

	return h.PublishFrame(Frame{EventID: eventID, Payload: payload})
}

// PublishFrame delivers an already serialized frame. It never blocks on a subscriber.
func (h *Hub) PublishFrame(frame Frame) (int, error) {
	start := time.Now()

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0, ErrHubClosed
	}
	snapshot := make([]*Subscription, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	receivers := 0
	for _, sub := range snapshot {
		enqueued, dropped, lagged := sub.deliver(frame, h.policy)

		if enqueued {
			receivers++
		}

		if dropped > 0 {
			h.logWarn(logMsgFrameDropped, logAttrSubscriptionID, sub.id.String(), logAttrDropped, sub.Dropped())
			h.incrementCounter(metricFramesDropped, map[string]string{labelPolicy: h.policy.String()})
		}

		if lagged {
			h.disconnectLagging(sub)
		}
	}

	h.incrementCounter(metricFramesPublished, nil)
	h.recordDuration(metricPublishDuration, time.Since(start))

	return receivers, nil
}

// SubscriberCount returns the number of registered subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

// Close ends every subscription with ErrHubClosed and rejects further Register and Publish calls.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subscribers := h.subscribers
	h.subscribers = make(map[uuid.UUID]*Subscription)
	h.mu.Unlock()

	for _, sub := range subscribers {
		sub.close(ErrHubClosed)
	}

	h.logInfo(logMsgHubClosed, logAttrSubscribers, len(subscribers))
	h.recordSubscribers(0)
}

func (h *Hub) remove(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.id]; !ok {
		return false
	}
	delete(h.subscribers, sub.id)

	return true
}

func (h *Hub) disconnectLagging(sub *Subscription) {
	h.remove(sub)
	count := h.SubscriberCount()

	h.logWarn(logMsgSubscriberLagged, logAttrSubscriptionID, sub.id.String(), logAttrSubscribers, count)
	h.incrementCounter(metricSubscribersDisconnected, map[string]string{labelReason: reasonLagged})
	h.recordSubscribers(count)
}
