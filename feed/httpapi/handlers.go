package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/eventstore"
	"github.com/Tushar4059x/the-hive-project/feed"
)

const (
	maxIngestBodyBytes = 1 << 20
	defaultRecentLimit = 50
	maxRecentLimit     = 1000

	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type ingestResponse struct {
	Status    string           `json:"status"`
	Receivers int              `json:"receivers"`
	Event     eventstore.Event `json:"event"`
}

type forkResponse struct {
	Status   string                    `json:"status"`
	NewCount eventstore.ForkCountInt64 `json:"new_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type spectatorModeResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Message: "Welcome to The Hive API. System Online.",
		Status:  "operational",
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	result, err := s.service.Ingest(r.Context(), fields)
	if err != nil {
		s.logError(logMsgIngestFailed, err)
		writeError(w, http.StatusInternalServerError, "storing the event failed")

		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Status:    "broadcasted",
		Receivers: result.Receivers,
		Event:     result.Event,
	})
}

func (s *Server) handleFork(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event id must be an integer")
		return
	}

	result, err := s.service.Fork(r.Context(), id)
	switch {
	case errors.Is(err, eventstore.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "Log not found")
	case err != nil:
		s.logError(logMsgForkFailed, err, logAttrEventID, id)
		writeError(w, http.StatusInternalServerError, "forking the event failed")
	default:
		writeJSON(w, http.StatusOK, forkResponse{Status: "forked", NewCount: result.Count})
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.Leaderboard(r.Context())
	s.writeEvents(w, events, err)
}

func (s *Server) handleAgentLogs(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.AgentLogs(r.Context(), r.PathValue("agentID"))
	s.writeEvents(w, events, err)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(parsed, maxRecentLimit)
	}

	events, err := s.service.RecentEvents(r.Context(), limit)
	s.writeEvents(w, events, err)
}

// handleStream writes one JSON document per line: the history, then live events and fork updates.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", contentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.service.Stream(r.Context(), func(line []byte) error {
		if _, err := w.Write(line); err != nil {
			return err
		}

		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}

		flusher.Flush()

		return nil
	})

	s.logStreamEnd(err)
}

// logStreamEnd logs why a stream session ended. A client going away is routine.
func (s *Server) logStreamEnd(err error) {
	switch {
	case errors.Is(err, feed.ErrSubscriberGone):
		s.logDebug(logMsgStreamEnded, logAttrError, err.Error())
	case err != nil:
		s.logWarn(logMsgStreamEnded, logAttrError, err.Error())
	}
}

func (s *Server) writeEvents(w http.ResponseWriter, events eventstore.Events, err error) {
	if err != nil {
		s.logError(logMsgQueryFailed, err)
		writeError(w, http.StatusInternalServerError, "reading events failed")

		return
	}

	if events == nil {
		events = eventstore.Events{}
	}

	writeJSON(w, http.StatusOK, events)
}

// writeJSON writes a JSON response with the given status code.
// A value that cannot be encoded turns into a 500 before anything is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encoding response failed"}`)
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
