package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// Store is the persistence surface the orchestrator needs. *db.DB is the
// production implementation; MemoryStore backs tests and single-shot CLI runs.
type Store interface {
	CreateSession(ctx context.Context, runID uuid.UUID, diag types.DiagnosticInput, candidates []types.CandidateAction, focus []string) (*db.SessionRecord, error)
	GetSessionByRunID(ctx context.Context, runID uuid.UUID) (*db.SessionRecord, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*db.SessionRecord, error)
	ListSessions(ctx context.Context, limit int) ([]*db.SessionRecord, error)
	UpdateSession(ctx context.Context, rec *db.SessionRecord, expectedStatus types.SessionStatus, expectedRound int) error
	DeleteSession(ctx context.Context, runID uuid.UUID) error

	InsertQuestions(ctx context.Context, questions []types.Question) error
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]types.Question, error)
	ListRoundQuestions(ctx context.Context, sessionID uuid.UUID, round int) ([]types.Question, error)
	InsertAnswers(ctx context.Context, answers []types.Answer) error
	ListAnswered(ctx context.Context, sessionID uuid.UUID) ([]types.AnsweredQuestion, error)
}

var _ Store = (*db.DB)(nil)
