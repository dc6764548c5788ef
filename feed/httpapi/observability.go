package httpapi

const (
	logMsgListening      = "http: listening"
	logMsgShutdownFailed = "http: graceful shutdown failed"
	logMsgRequest        = "http: request"
	logMsgIngestFailed   = "http: ingest failed"
	logMsgForkFailed     = "http: fork failed"
	logMsgQueryFailed    = "http: query failed"
	logMsgStreamEnded    = "http: stream ended"
	logMsgUpgradeFailed  = "http: websocket upgrade failed"

	logAttrAddr       = "addr"
	logAttrRequestID  = "request_id"
	logAttrMethod     = "method"
	logAttrPath       = "path"
	logAttrStatus     = "status"
	logAttrDurationMS = "duration_ms"
	logAttrEventID    = "event_id"
	logAttrError      = "error"
)

func (s *Server) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func (s *Server) logError(msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, append([]any{logAttrError, err.Error()}, args...)...)
	}
}
