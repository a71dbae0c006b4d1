package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/pipeline"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// handleStartRunStream starts a run and streams lifecycle events as the
// session advances. The stream ends when the run blocks on the user or
// terminates; clients resume over the plain endpoints.
func (s *Server) handleStartRunStream(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	runID, err := uuid.Parse(req.RunID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run_id: "+err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec, err := s.orchestrator.Start(r.Context(), pipeline.StartRequest{
		RunID:            runID,
		Diagnostics:      req.Diagnostics,
		CandidateActions: req.CandidateActions,
		PriorityFocus:    req.PriorityFocus,
		Restart:          req.Restart,
		Progress: func(stage string, rec *db.SessionRecord) {
			sse.WriteEvent("progress", map[string]any{ //nolint:errcheck
				"run_id": rec.RunID.String(),
				"stage":  stage,
				"round":  rec.CurrentRound,
			})
		},
	})
	if err != nil {
		var collab *pipeline.CollaboratorError
		if !errors.As(err, &collab) || rec == nil {
			sse.WriteError(err.Error())
			return
		}
	}

	sse.WriteEvent("state", runResponse(rec)) //nolint:errcheck
}
