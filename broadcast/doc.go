// Package broadcast implements the Broadcast Hub, the process-wide registry of live subscribers.
//
// A Hub fans every published frame out to all registered subscriptions. Each subscription owns a
// bounded buffer, and Publish never waits on a subscriber: when a buffer is full the hub applies
// its OverflowPolicy, either discarding the subscriber's oldest frame (DropOldest) or disconnecting
// the subscriber (DisconnectOnLag).
//
// Frames from a single publisher arrive at every subscription in publish order. A subscription
// removed with Unregister never receives another frame, even if a Publish is in flight.
//
// Basic usage:
//
//	hub, err := broadcast.NewHub(broadcast.WithBufferSize(256))
//	sub, err := hub.Register()
//	defer hub.Unregister(sub)
//
//	receivers, err := hub.Publish(event.ID, event)
//
//	frame, err := sub.Next(ctx)
package broadcast
