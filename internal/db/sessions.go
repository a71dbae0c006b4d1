package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// SessionRecord is the persisted shape of a session: the session state plus
// the immutable inputs captured when the run was started.
type SessionRecord struct {
	types.InterpretationSession
	Diagnostics      types.DiagnosticInput
	CandidateActions []types.CandidateAction
	PriorityFocus    []string

	// RewriteInstructions carries the critic's guidance from the last
	// assessment across the awaiting_user boundary so regeneration can
	// resume from persisted state alone.
	RewriteInstructions []string
}

const uniqueViolationCode = "23505"

// CreateSession inserts a new pending session for the run. If a session for
// run_id already exists it returns *SessionExistsError carrying the current
// record, which makes repeated start requests safe.
func (db *DB) CreateSession(ctx context.Context, runID uuid.UUID, diag types.DiagnosticInput, candidates []types.CandidateAction, focus []string) (*SessionRecord, error) {
	diagJSON, err := json.Marshal(diag)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	candJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidate actions: %w", err)
	}
	focusJSON, err := json.Marshal(focus)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal priority focus: %w", err)
	}

	now := time.Now().UTC()
	rec := &SessionRecord{
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

	query := `
		INSERT INTO interpretation_sessions
			(id, run_id, status, current_round, total_questions_asked,
			 diagnostics, candidate_actions, priority_focus, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, $4, $5, $6, $7, $7)`

	_, err = db.pool.Exec(ctx, query,
		rec.ID, runID, string(rec.Status), diagJSON, candJSON, focusJSON, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			existing, getErr := db.GetSessionByRunID(ctx, runID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load existing session: %w", getErr)
			}
			return nil, &SessionExistsError{RunID: runID, Existing: existing}
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return rec, nil
}

// GetSessionByRunID retrieves a session by run ID. Returns nil if not found.
func (db *DB) GetSessionByRunID(ctx context.Context, runID uuid.UUID) (*SessionRecord, error) {
	return db.getSession(ctx, "run_id", runID)
}

// GetSession retrieves a session by its own ID. Returns nil if not found.
func (db *DB) GetSession(ctx context.Context, sessionID uuid.UUID) (*SessionRecord, error) {
	return db.getSession(ctx, "id", sessionID)
}

func (db *DB) getSession(ctx context.Context, column string, id uuid.UUID) (*SessionRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, status, current_round, total_questions_asked,
		       diagnostics, candidate_actions, priority_focus,
		       draft, rewrite_instructions, report, error_message, created_at, updated_at
		FROM interpretation_sessions
		WHERE %s = $1`, column)

	var (
		rec         SessionRecord
		status      string
		diagJSON    []byte
		candJSON    []byte
		focusJSON   []byte
		draftJSON   []byte
		rewriteJSON []byte
		repJSON     []byte
		errMsg      *string
	)
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.RunID, &status, &rec.CurrentRound, &rec.TotalQuestionsAsked,
		&diagJSON, &candJSON, &focusJSON,
		&draftJSON, &rewriteJSON, &repJSON, &errMsg, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rec.Status = types.SessionStatus(status)
	if errMsg != nil {
		rec.ErrorMessage = *errMsg
	}
	if err := json.Unmarshal(diagJSON, &rec.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	if len(candJSON) > 0 {
		if err := json.Unmarshal(candJSON, &rec.CandidateActions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate actions: %w", err)
		}
	}
	if len(focusJSON) > 0 {
		if err := json.Unmarshal(focusJSON, &rec.PriorityFocus); err != nil {
			return nil, fmt.Errorf("failed to unmarshal priority focus: %w", err)
		}
	}
	if len(draftJSON) > 0 {
		rec.Draft = &types.Draft{}
		if err := json.Unmarshal(draftJSON, rec.Draft); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
		}
	}
	if len(rewriteJSON) > 0 {
		if err := json.Unmarshal(rewriteJSON, &rec.RewriteInstructions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rewrite instructions: %w", err)
		}
	}
	if len(repJSON) > 0 {
		rec.Report = &types.Report{}
		if err := json.Unmarshal(repJSON, rec.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
	}

	return &rec, nil
}

// ListSessions returns the most recent sessions, newest first
func (db *DB) ListSessions(ctx context.Context, limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT run_id FROM interpretation_sessions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var runIDs []uuid.UUID
	for rows.Next() {
		var runID uuid.UUID
		if err := rows.Scan(&runID); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		runIDs = append(runIDs, runID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*SessionRecord, 0, len(runIDs))
	for _, runID := range runIDs {
		rec, err := db.GetSessionByRunID(ctx, runID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UpdateSession persists the mutable session fields, guarded by the status
// and round the caller last observed. Returns *StaleSessionError when the
// row was changed by a concurrent writer.
func (db *DB) UpdateSession(ctx context.Context, rec *SessionRecord, expectedStatus types.SessionStatus, expectedRound int) error {
	var draftJSON, repJSON []byte
	var err error
	if rec.Draft != nil {
		draftJSON, err = json.Marshal(rec.Draft)
		if err != nil {
			return fmt.Errorf("failed to marshal draft: %w", err)
		}
	}
	if rec.Report != nil {
		repJSON, err = json.Marshal(rec.Report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	}
	var rewriteJSON []byte
	if len(rec.RewriteInstructions) > 0 {
		rewriteJSON, err = json.Marshal(rec.RewriteInstructions)
		if err != nil {
			return fmt.Errorf("failed to marshal rewrite instructions: %w", err)
		}
	}

	query := `
		UPDATE interpretation_sessions
		SET status = $1, current_round = $2, total_questions_asked = $3,
		    draft = $4, rewrite_instructions = $5, report = $6,
		    error_message = $7, updated_at = NOW()
		WHERE id = $8 AND status = $9 AND current_round = $10`

	tag, err := db.pool.Exec(ctx, query,
		string(rec.Status), rec.CurrentRound, rec.TotalQuestionsAsked,
		draftJSON, rewriteJSON, repJSON, nullable(rec.ErrorMessage),
		rec.ID, string(expectedStatus), expectedRound)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &StaleSessionError{SessionID: rec.ID}
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its questions and
// answers. Used by restart to clear prior state for a run.
func (db *DB) DeleteSession(ctx context.Context, runID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM interpretation_sessions WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
