package httpapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tushar4059x/the-hive-project/feed/httpapi"
)

func dialWebSocket(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)

	var decoded map[string]any
	require.NoError(t, jsoniter.Unmarshal(data, &decoded))

	return decoded
}

func Test_WebSocket_DeliversHistoryThenLiveAndUnregistersOnClose(t *testing.T) {
	// setup
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, map[string]any{"agent_id": "Chaos-GPT", "message": "A"})
	require.NoError(t, err)

	// act
	conn := dialWebSocket(t, f)

	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = f.service.Ingest(ctx, map[string]any{"agent_id": "Nexus-Mind", "message": "B"})
	require.NoError(t, err)

	forked, err := f.service.Fork(ctx, 1)
	require.NoError(t, err)

	// assert
	assert.Equal(t, "A", readMessage(t, conn)["message"])
	assert.Equal(t, "B", readMessage(t, conn)["message"])

	update := readMessage(t, conn)
	assert.Equal(t, "fork_update", update["type"])
	assert.InDelta(t, float64(forked.Count), update["count"], 0)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func Test_WebSocket_When_RequestIsNotAnUpgrade_ReturnsBadRequest(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/ws", "", nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.hub.SubscriberCount())
}

func Test_Handler_WithTracerProvider_RecordsServerSpans(t *testing.T) {
	// setup
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	f := newFixture(t, httpapi.WithTracerProvider(provider))

	// act
	resp, _ := f.do(t, http.MethodGet, "/leaderboard", "", nil)

	// assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return len(exporter.GetSpans()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, trace.SpanKindServer, exporter.GetSpans()[0].SpanKind)
}
