package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Tushar4059x/the-hive-project/eventstore/oteladapters"
)

type recordingLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, record := range records {
		e.records = append(e.records, record.Clone())
	}

	return nil
}

func (e *recordingLogExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingLogExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingLogExporter) Records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]sdklog.Record(nil), e.records...)
}

func Test_SlogBridgeLogger_ExportsRecordsWithTraceCorrelation(t *testing.T) {
	// setup
	exporter := &recordingLogExporter{}
	loggerProvider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	t.Cleanup(func() { _ = loggerProvider.Shutdown(context.Background()) })

	tracerProvider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tracerProvider.Shutdown(context.Background()) })

	logger := oteladapters.NewSlogBridgeLogger("hive-test", loggerProvider)

	// arrange
	ctx, span := tracerProvider.Tracer("hive-test").Start(context.Background(), "feed.ingest")

	// act
	logger.InfoContext(ctx, "event ingested", "event_id", 7)
	span.End()

	// assert
	records := exporter.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "event ingested", records[0].Body().AsString())
	assert.Equal(t, otellog.SeverityInfo, records[0].Severity())
	assert.Equal(t, span.SpanContext().TraceID(), records[0].TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), records[0].SpanID())
}

func Test_SlogBridgeLoggerWithHandler_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, "debug message")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, `"error":"boom"`)
	assert.NotNil(t, logger.Logger())
}
