package pipeline

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// MemoryStore is an in-process Store used by the CLI run mode and by tests.
// It mirrors the database semantics: one session per run_id, optimistic
// updates guarded by status and round, and cascade deletion of questions and
// answers. Records are deep-copied on the way in and out so callers never
// share memory with the store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*db.SessionRecord // keyed by session ID
	byRun    map[uuid.UUID]uuid.UUID
	question map[uuid.UUID][]types.Question // keyed by session ID
	answers  map[uuid.UUID]map[uuid.UUID]types.Answer
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*db.SessionRecord),
		byRun:    make(map[uuid.UUID]uuid.UUID),
		question: make(map[uuid.UUID][]types.Question),
		answers:  make(map[uuid.UUID]map[uuid.UUID]types.Answer),
	}
}

func copyRecord(rec *db.SessionRecord) *db.SessionRecord {
	if rec == nil {
		return nil
	}
	b, _ := json.Marshal(rec)
	var out db.SessionRecord
	_ = json.Unmarshal(b, &out)
	return &out
}

// CreateSession inserts a pending session, enforcing one session per run
func (s *MemoryStore) CreateSession(_ context.Context, runID uuid.UUID, diag types.DiagnosticInput, candidates []types.CandidateAction, focus []string) (*db.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid, ok := s.byRun[runID]; ok {
		return nil, &db.SessionExistsError{RunID: runID, Existing: copyRecord(s.sessions[sid])}
	}

	now := time.Now().UTC()
	rec := &db.SessionRecord{
		InterpretationSession: types.InterpretationSession{
			ID:        uuid.New(),
			RunID:     runID,
			Status:    types.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Diagnostics:      diag,
		CandidateActions: candidates,
		PriorityFocus:    focus,
	}
	s.sessions[rec.ID] = copyRecord(rec)
	s.byRun[runID] = rec.ID
	return rec, nil
}

// GetSessionByRunID returns the session for a run, or nil if none exists
func (s *MemoryStore) GetSessionByRunID(_ context.Context, runID uuid.UUID) (*db.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sid, ok := s.byRun[runID]
	if !ok {
		return nil, nil
	}
	return copyRecord(s.sessions[sid]), nil
}

// GetSession returns a session by ID, or nil if none exists
func (s *MemoryStore) GetSession(_ context.Context, sessionID uuid.UUID) (*db.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecord(s.sessions[sessionID]), nil
}

// ListSessions returns the most recent sessions, newest first
func (s *MemoryStore) ListSessions(_ context.Context, limit int) ([]*db.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]*db.SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateSession applies an optimistically guarded update
func (s *MemoryStore) UpdateSession(_ context.Context, rec *db.SessionRecord, expectedStatus types.SessionStatus, expectedRound int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[rec.ID]
	if !ok || stored.Status != expectedStatus || stored.CurrentRound != expectedRound {
		return &db.StaleSessionError{SessionID: rec.ID}
	}
	updated := copyRecord(rec)
	updated.UpdatedAt = time.Now().UTC()
	s.sessions[rec.ID] = updated
	return nil
}

// DeleteSession removes a session and everything keyed under it
func (s *MemoryStore) DeleteSession(_ context.Context, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid, ok := s.byRun[runID]
	if !ok {
		return nil
	}
	delete(s.sessions, sid)
	delete(s.byRun, runID)
	delete(s.question, sid)
	delete(s.answers, sid)
	return nil
}

// InsertQuestions appends a batch of questions for their session
func (s *MemoryStore) InsertQuestions(_ context.Context, questions []types.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.question[q.SessionID] = append(s.question[q.SessionID], q)
	}
	return nil
}

// ListQuestions returns all questions for the session in insertion order
func (s *MemoryStore) ListQuestions(_ context.Context, sessionID uuid.UUID) ([]types.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Question, len(s.question[sessionID]))
	copy(out, s.question[sessionID])
	return out, nil
}

// ListRoundQuestions returns the questions asked in a single round
func (s *MemoryStore) ListRoundQuestions(_ context.Context, sessionID uuid.UUID, round int) ([]types.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Question
	for _, q := range s.question[sessionID] {
		if q.Round == round {
			out = append(out, q)
		}
	}
	return out, nil
}

// InsertAnswers records answers, overwriting any prior answer per question
func (s *MemoryStore) InsertAnswers(_ context.Context, answers []types.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range answers {
		m, ok := s.answers[a.SessionID]
		if !ok {
			m = make(map[uuid.UUID]types.Answer)
			s.answers[a.SessionID] = m
		}
		m[a.QuestionID] = a
	}
	return nil
}

// ListAnswered pairs each answered question with its answer in ask order
func (s *MemoryStore) ListAnswered(_ context.Context, sessionID uuid.UUID) ([]types.AnsweredQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.AnsweredQuestion
	for _, q := range s.question[sessionID] {
		if a, ok := s.answers[sessionID][q.ID]; ok {
			out = append(out, types.AnsweredQuestion{Question: q, Answer: a})
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
