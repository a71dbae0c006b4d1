package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/pipeline"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// StartRunRequest is the request body for POST /runs
type StartRunRequest struct {
	RunID            string                  `json:"run_id" validate:"required,uuid"`
	Diagnostics      types.DiagnosticInput   `json:"diagnostics"`
	CandidateActions []types.CandidateAction `json:"candidate_actions,omitempty"`
	PriorityFocus    []string                `json:"priority_focus,omitempty"`
	Restart          bool                    `json:"restart,omitempty"`
}

// SubmitAnswersRequest is the request body for POST /runs/{run_id}/answers
type SubmitAnswersRequest struct {
	Answers []pipeline.AnswerSubmission `json:"answers" validate:"required,min=1,dive"`
}

// RunResponse summarizes a session for API consumers
type RunResponse struct {
	RunID               string `json:"run_id"`
	SessionID           string `json:"session_id"`
	Status              string `json:"status"`
	CurrentRound        int    `json:"current_round"`
	TotalQuestionsAsked int    `json:"total_questions_asked"`
	Error               string `json:"error,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// QuestionsResponse is the response for GET /runs/{run_id}/questions
type QuestionsResponse struct {
	RunID     string           `json:"run_id"`
	Status    string           `json:"status"`
	Round     int              `json:"round"`
	Questions []types.Question `json:"questions"`
}

func runResponse(rec *db.SessionRecord) RunResponse {
	return RunResponse{
		RunID:               rec.RunID.String(),
		SessionID:           rec.ID.String(),
		Status:              string(rec.Status),
		CurrentRound:        rec.CurrentRound,
		TotalQuestionsAsked: rec.TotalQuestionsAsked,
		Error:               rec.ErrorMessage,
		CreatedAt:           rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           rec.UpdatedAt.Format(time.RFC3339),
	}
}

// handleStartRun starts (or resumes) an interpretation run
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
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

	// Distinguish a fresh start from an idempotent re-start for the
	// response code. Benign under races: the orchestrator is what
	// guarantees one session per run, not this read.
	existing, err := s.orchestrator.GetRun(r.Context(), runID)
	created := err != nil || existing == nil || req.Restart

	rec, err := s.orchestrator.Start(r.Context(), pipeline.StartRequest{
		RunID:            runID,
		Diagnostics:      req.Diagnostics,
		CandidateActions: req.CandidateActions,
		PriorityFocus:    req.PriorityFocus,
		Restart:          req.Restart,
	})
	if err != nil {
		// A collaborator failure still yields a (failed) session worth
		// reporting; everything else is a plain error.
		var collab *pipeline.CollaboratorError
		if errors.As(err, &collab) && rec != nil {
			s.jsonResponse(w, HTTPStatus(err), runResponse(rec))
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, runResponse(rec))
}

// handleListRuns returns recent runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var statusFilter types.SessionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		statusFilter = types.SessionStatus(v)
		if !statusFilter.Valid() {
			s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", v))
			return
		}
	}

	recs, err := s.orchestrator.ListRuns(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]RunResponse, 0, len(recs))
	for _, rec := range recs {
		if statusFilter != "" && rec.Status != statusFilter {
			continue
		}
		out = append(out, runResponse(rec))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": out})
}

// handleGetRun returns the current state of a run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	rec, err := s.orchestrator.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, runResponse(rec))
}

// handleGetQuestions returns the open questions of the current round
func (s *Server) handleGetQuestions(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	rec, err := s.orchestrator.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	questions, err := s.orchestrator.OpenQuestions(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if questions == nil {
		questions = []types.Question{}
	}

	s.jsonResponse(w, http.StatusOK, QuestionsResponse{
		RunID:     runID.String(),
		Status:    string(rec.Status),
		Round:     rec.CurrentRound,
		Questions: questions,
	})
}

// handleSubmitAnswers records the answers for the current round and resumes
// the pipeline.
func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	var req SubmitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	rec, err := s.orchestrator.SubmitAnswers(r.Context(), runID, req.Answers, nil)
	if err != nil {
		var incomplete *pipeline.IncompleteAnswersError
		if errors.As(err, &incomplete) {
			missing := make([]string, len(incomplete.Missing))
			for i, id := range incomplete.Missing {
				missing[i] = id.String()
			}
			s.jsonResponse(w, http.StatusBadRequest, map[string]any{
				"error":                "incomplete_answers",
				"message":              "every open question of the round must be answered in one submission",
				"missing_question_ids": missing,
			})
			return
		}
		var collab *pipeline.CollaboratorError
		if errors.As(err, &collab) && rec != nil {
			s.jsonResponse(w, HTTPStatus(err), runResponse(rec))
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, runResponse(rec))
}

// handleGetReport returns the final report of a completed run
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	report, err := s.orchestrator.Report(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("run_id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run_id: "+err.Error())
		return uuid.Nil, false
	}
	return runID, true
}
