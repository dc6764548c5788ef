package broadcast

import (
	"time"
)

const (
	logMsgSubscriberRegistered   = "broadcast: subscriber registered"
	logMsgSubscriberUnregistered = "broadcast: subscriber unregistered"
	logMsgSubscriberLagged       = "broadcast: subscriber lagged and was disconnected"
	logMsgFrameDropped           = "broadcast: dropped oldest frame of slow subscriber"
	logMsgHubClosed              = "broadcast: hub closed"

	logAttrSubscriptionID = "subscription_id"
	logAttrSubscribers    = "subscribers"
	logAttrDropped        = "dropped_total"
)

const (
	metricSubscribers             = "broadcast_subscribers"
	metricFramesPublished         = "broadcast_frames_published_total"
	metricFramesDropped           = "broadcast_frames_dropped_total"
	metricSubscribersDisconnected = "broadcast_subscribers_disconnected_total"
	metricPublishDuration         = "broadcast_publish_duration_seconds"

	labelPolicy  = "policy"
	labelReason  = "reason"
	reasonLagged = "lagged"
)

func (h *Hub) logInfo(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Info(msg, args...)
	}
}

func (h *Hub) logWarn(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Warn(msg, args...)
	}
}

func (h *Hub) recordSubscribers(count int) {
	if h.metricsCollector != nil {
		h.metricsCollector.RecordValue(metricSubscribers, float64(count), nil)
	}
}

func (h *Hub) incrementCounter(metric string, labels map[string]string) {
	if h.metricsCollector != nil {
		h.metricsCollector.IncrementCounter(metric, labels)
	}
}

func (h *Hub) recordDuration(metric string, duration time.Duration) {
	if h.metricsCollector != nil {
		h.metricsCollector.RecordDuration(metric, duration, nil)
	}
}
