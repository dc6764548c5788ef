package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Tushar4059x/the-hive-project/eventstore/oteladapters"
	"github.com/Tushar4059x/the-hive-project/testutil/spies"
)

func newTracingCollector() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("hive-test")), exporter
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()

	// act
	_, span := collector.StartSpan(context.Background(), "eventstore.insert", map[string]string{"operation": "insert"})
	span.AddAttribute("duration_ms", "1.25")
	collector.FinishSpan(span, "success", map[string]string{"event_id": "7"})

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventstore.insert", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.String("operation", "insert"))
	assert.Contains(t, spans[0].Attributes, attribute.String("duration_ms", "1.25"))
	assert.Contains(t, spans[0].Attributes, attribute.String("event_id", "7"))
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	testCases := []struct {
		status       string
		expectedCode codes.Code
	}{
		{status: "success", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error},
		{status: "canceled", expectedCode: codes.Error},
		{status: "not_found", expectedCode: codes.Error},
		{status: "something_else", expectedCode: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			collector, exporter := newTracingCollector()

			_, span := collector.StartSpan(context.Background(), "feed.ingest", nil)
			collector.FinishSpan(span, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_StartSpan_NestsUnderParent(t *testing.T) {
	// arrange
	collector, exporter := newTracingCollector()

	// act
	ctx, parent := collector.StartSpan(context.Background(), "http.ingest", nil)
	_, child := collector.StartSpan(ctx, "eventstore.insert", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter := newTracingCollector()

	collector.FinishSpan(&spies.SpanSpy{}, "success", nil)

	assert.Empty(t, exporter.GetSpans())
}
