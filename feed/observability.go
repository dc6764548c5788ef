package feed

import "time"

const (
	logMsgEventIngested = "feed: event ingested"
	logMsgEventForked   = "feed: event forked"
	logMsgIngestFailed  = "feed: ingest failed"
	logMsgForkFailed    = "feed: fork failed"
	logMsgPublishFailed = "feed: publishing stored event failed"
	logMsgHistoryFailed = "feed: reading history failed"
	logMsgSubscribed    = "feed: subscriber joined"
	logMsgStreamEnded   = "feed: stream ended"

	logAttrEventID        = "event_id"
	logAttrAgentID        = "agent_id"
	logAttrReceivers      = "receivers"
	logAttrForkCount      = "fork_count"
	logAttrSubscriptionID = "subscription_id"
	logAttrHistory        = "history"
	logAttrSkipped        = "skipped_duplicates"
	logAttrDropped        = "dropped_frames"
	logAttrError          = "error"
)

const (
	metricIngestDuration = "feed_ingest_duration_seconds"
	metricEventsIngested = "feed_events_ingested_total"
	metricForks          = "feed_forks_total"
	metricStreamsOpened  = "feed_streams_opened_total"
	metricStreamsClosed  = "feed_streams_closed_total"

	labelLevel    = "level"
	labelStatus   = "status"
	statusSuccess = "success"
	statusError   = "error"
)

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Service) logError(msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, append([]any{logAttrError, err.Error()}, args...)...)
	}
}

func (s *Service) incrementCounter(metric string, labels map[string]string) {
	if s.metricsCollector != nil {
		s.metricsCollector.IncrementCounter(metric, labels)
	}
}

func (s *Service) recordDuration(metric string, duration time.Duration, status string) {
	if s.metricsCollector != nil {
		s.metricsCollector.RecordDuration(metric, duration, map[string]string{labelStatus: status})
	}
}
