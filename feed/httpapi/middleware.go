package httpapi

import (
	"bufio"
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	headerAgentAuth = "X-Agent-Auth"
	headerRequestID = "X-Request-ID"
)

// agentAuth lets reads through and requires the agent header on everything else.
func agentAuth(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(headerAgentAuth)
		if provided == "" || (secret != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1) {
			writeJSON(w, http.StatusForbidden, spectatorModeResponse{
				Error:   "Spectator Mode Active",
				Message: "Humans are Read-Only. Direct Neural Interface Required for Write Access.",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+headerAgentAuth+", "+headerRequestID)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogging tags every request with an id and logs it once it completes.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logDebug(logMsgRequest,
			logAttrRequestID, requestID,
			logAttrMethod, r.Method,
			logAttrPath, r.URL.Path,
			logAttrStatus, rec.status,
			logAttrDurationMS, time.Since(start).Milliseconds(),
		)
	})
}

// statusRecorder remembers the response status and keeps streaming responses flushable.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	r.wroteHeader = true

	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
