package broadcast

import (
	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// Option defines a functional option for configuring a Hub.
type Option func(*Hub) error

// WithBufferSize sets how many frames each subscription buffers before the overflow policy applies.
func WithBufferSize(size int) Option {
	return func(h *Hub) error {
		if size <= 0 {
			return ErrInvalidBufferSize
		}

		h.bufferSize = size

		return nil
	}
}

// WithOverflowPolicy sets what happens when a subscription's buffer is full.
func WithOverflowPolicy(policy OverflowPolicy) Option {
	return func(h *Hub) error {
		h.policy = policy
		return nil
	}
}

// WithLogger sets the logger for registrations (Info), dropped frames and lagging subscribers (Warn).
func WithLogger(logger eventstore.Logger) Option {
	return func(h *Hub) error {
		h.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for subscriber counts, published and dropped frames.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(h *Hub) error {
		h.metricsCollector = collector
		return nil
	}
}
