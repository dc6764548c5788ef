package feed

import (
	"time"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// Option defines a functional option for configuring a Service.
type Option func(*Service) error

// WithHistorySize sets how many recent events a new subscription replays before going live.
func WithHistorySize(size int) Option {
	return func(s *Service) error {
		if size <= 0 {
			return ErrInvalidHistorySize
		}

		s.historySize = size

		return nil
	}
}

// WithLogger sets the logger for ingested events, forks and stream sessions.
func WithLogger(logger eventstore.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for ingest durations and feed counters.
func WithMetrics(collector eventstore.MetricsCollector) Option {
	return func(s *Service) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithClock replaces time.Now for defaulting timestamps of ingested events.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) error {
		s.clock = clock
		return nil
	}
}
