package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

// Log messages and attribute keys.
const (
	logMsgSQLExecuted            = "eventstore: SQL executed for "
	logMsgOperation              = "eventstore operation: "
	logMsgEventInserted          = "event inserted"
	logMsgForkIncremented        = "fork incremented"
	logMsgBuildInsertQueryFailed = "eventstore: failed to build insert query"
	logMsgBuildSelectQueryFailed = "eventstore: failed to build select query"
	logMsgBuildUpdateQueryFailed = "eventstore: failed to build update query"
	logMsgDBQueryFailed          = "eventstore: database query failed"
	logMsgScanRowFailed          = "eventstore: failed to scan database row"
	logMsgCloseRowsFailed        = "eventstore: failed to close database rows"
	logMsgSchemaMigrated         = "eventstore: schema migrated"

	logAttrDurationMS = "duration_ms"
	logAttrQuery      = "query"
	logAttrError      = "error"
	logAttrEventID    = "event_id"
	logAttrAgentID    = "agent_id"
	logAttrForkCount  = "fork_count"
	logAttrTable      = "table"
	logAttrVersion    = "version"
)

// Operation names double as span names and as the "operation" metric label.
const (
	operationInsert        = "insert"
	operationRecentEvents  = "recent_events"
	operationEventsByAgent = "events_by_agent"
	operationTopByForks    = "top_by_forks"
	operationIncrementFork = "increment_fork"

	spanNamePrefix = "eventstore."
)

// Span attribute keys.
const (
	spanAttrOperation  = "operation"
	spanAttrEventID    = "event_id"
	spanAttrAgentID    = "agent_id"
	spanAttrLimit      = "limit"
	spanAttrEventCount = "event_count"
	spanAttrForkCount  = "fork_count"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"
)

// Metric names.
const (
	metricOperationDuration = "eventstore_operation_duration_seconds"
	metricOperationErrors   = "eventstore_operation_errors_total"
	metricEventsInserted    = "eventstore_events_inserted_total"
	metricForksIncremented  = "eventstore_forks_incremented_total"
	metricEventsReturned    = "eventstore_events_returned"

	labelStatus = "status"
)

// Status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// Error types reported on spans and metrics.
const (
	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeDatabaseExec  = "database_exec"
	errorTypeRowScan       = "row_scan"
	errorTypeJSON          = "json"
	errorTypeNotFound      = "not_found"
	errorTypeContext       = "context"
)

var errNoRowReturned = errors.New("statement returned no row")

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// errorTypeOf classifies an error returned by queryEvents for spans and metrics.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeContext
	case errors.Is(err, eventstore.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, eventstore.ErrScanningDBRowFailed):
		return errorTypeRowScan
	case errors.Is(err, eventstore.ErrDecodingExtraFailed), errors.Is(err, eventstore.ErrEncodingExtraFailed):
		return errorTypeJSON
	case errors.Is(err, eventstore.ErrInsertingEventFailed):
		return errorTypeDatabaseExec
	default:
		return errorTypeDatabaseQuery
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (es *EventStore) logQueryWithDuration(
	ctx context.Context,
	sqlQuery string,
	action string,
	duration time.Duration,
) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if es.contextualLogger != nil {
		es.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
		return
	}

	if es.logger != nil {
		es.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (es *EventStore) logOperation(ctx context.Context, action string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if es.logger != nil {
		es.logger.Info(logMsgOperation+action, args...)
	}
}

func (es *EventStore) logWarn(ctx context.Context, message string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.WarnContext(ctx, message, args...)
		return
	}

	if es.logger != nil {
		es.logger.Warn(message, args...)
	}
}

// logError logs error information at the error level.
func (es *EventStore) logError(
	ctx context.Context,
	message string,
	err error,
	args ...any,
) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if es.contextualLogger != nil {
		es.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if es.logger != nil {
		es.logger.Error(message, allArgs...)
	}
}

// === Operation Observer ===
// operationObserver bundles the span and the metrics of one store call.

type operationObserver struct {
	es        *EventStore
	ctx       context.Context
	span      eventstore.SpanContext
	operation string
	start     time.Time
}

func (es *EventStore) startOperation(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (*operationObserver, context.Context) {

	var span eventstore.SpanContext
	if es.tracingCollector != nil {
		spanAttrs := map[string]string{spanAttrOperation: operation}
		for key, value := range attrs {
			spanAttrs[key] = value
		}

		ctx, span = es.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, spanAttrs)
	}

	return &operationObserver{
		es:        es,
		ctx:       ctx,
		span:      span,
		operation: operation,
		start:     time.Now(),
	}, ctx
}

func (o *operationObserver) finishSuccess(attrs map[string]string) {
	duration := time.Since(o.start)

	o.recordDuration(duration, statusSuccess)

	switch o.operation {
	case operationInsert:
		o.incrementCounter(metricEventsInserted, map[string]string{spanAttrOperation: o.operation})
	case operationIncrementFork:
		o.incrementCounter(metricForksIncremented, map[string]string{spanAttrOperation: o.operation})
	}

	o.finishSpan(statusSuccess, attrs, duration)
}

// finishRead completes a read operation and records how many events it returned.
func (o *operationObserver) finishRead(eventCount int) {
	if o.es.metricsCollector != nil {
		labels := map[string]string{spanAttrOperation: o.operation, labelStatus: statusSuccess}

		if contextual, ok := o.es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
			contextual.RecordValueContext(o.ctx, metricEventsReturned, float64(eventCount), labels)
		} else {
			o.es.metricsCollector.RecordValue(metricEventsReturned, float64(eventCount), labels)
		}
	}

	o.finishSuccess(map[string]string{spanAttrEventCount: formatInt(int64(eventCount))})
}

func (o *operationObserver) finishError(errorType string) {
	duration := time.Since(o.start)

	o.recordDuration(duration, statusError)
	o.incrementCounter(metricOperationErrors, map[string]string{
		spanAttrOperation: o.operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})

	o.finishSpan(statusError, map[string]string{spanAttrErrorType: errorType}, duration)
}

func (o *operationObserver) finishSpan(status string, attrs map[string]string, duration time.Duration) {
	if o.es.tracingCollector == nil || o.span == nil {
		return
	}

	o.span.SetStatus(status)
	o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	o.es.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (o *operationObserver) recordDuration(duration time.Duration, status string) {
	if o.es.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: o.operation, labelStatus: status}

	if contextual, ok := o.es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricOperationDuration, duration, labels)
		return
	}

	o.es.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
}

func (o *operationObserver) incrementCounter(metric string, labels map[string]string) {
	if o.es.metricsCollector == nil {
		return
	}

	if contextual, ok := o.es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(o.ctx, metric, labels)
		return
	}

	o.es.metricsCollector.IncrementCounter(metric, labels)
}
