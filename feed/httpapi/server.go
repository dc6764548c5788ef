package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/feed"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second

	otelOperation = "hive.http"
)

// Server serves a feed.Service over HTTP.
type Server struct {
	service     *feed.Service
	srv         *http.Server
	agentSecret string
	logger      eventstore.Logger
	upgrader    websocket.Upgrader

	tracerProvider trace.TracerProvider
}

// Option defines a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and stream sessions.
func WithLogger(logger eventstore.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAgentSecret requires X-Agent-Auth to equal secret on write requests.
// Without a secret any non-empty header value is accepted.
func WithAgentSecret(secret string) Option {
	return func(s *Server) {
		s.agentSecret = secret
	}
}

// WithTracerProvider wraps the handler in otelhttp server instrumentation.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerProvider = provider
	}
}

// New creates a Server for service.
func New(service *feed.Service, options ...Option) *Server {
	s := &Server{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Any origin, matching the CORS headers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	for _, option := range options {
		option(s)
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler returns the routes wrapped in request logging, CORS, the agent write guard and optionally otelhttp.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /upload_clip", s.handleIngest)
	mux.HandleFunc("POST /events", s.handleIngest)
	mux.HandleFunc("POST /fork/{id}", s.handleFork)
	mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /agent/{agentID}/logs", s.handleAgentLogs)
	mux.HandleFunc("GET /events/recent", s.handleRecentEvents)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	handler := s.requestLogging(cors(agentAuth(s.agentSecret, mux)))

	if s.tracerProvider != nil {
		handler = otelhttp.NewHandler(handler, otelOperation, otelhttp.WithTracerProvider(s.tracerProvider))
	}

	return handler
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
// Open streams end when their request contexts are canceled by the shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, lis)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	s.logInfo(logMsgListening, logAttrAddr, lis.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(lis) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logWarn(logMsgShutdownFailed, logAttrError, err.Error())
			_ = s.srv.Close()
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}
