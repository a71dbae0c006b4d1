package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// InsertQuestions stores a batch of generated questions inside one
// transaction so a round is never partially recorded.
func (db *DB) InsertQuestions(ctx context.Context, questions []types.Question) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO session_questions
			(id, session_id, gap_id, round, question_type, question_text, options, rationale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, q := range questions {
		optJSON, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal question options: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			q.ID, q.SessionID, q.GapID, q.Round, string(q.Type),
			q.Text, optJSON, q.Rationale, q.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit questions: %w", err)
	}
	return nil
}

// ListQuestions returns all questions for a session ordered by round, then
// creation order within the round.
func (db *DB) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]types.Question, error) {
	query := `
		SELECT id, session_id, gap_id, round, question_type, question_text, options, rationale, created_at
		FROM session_questions
		WHERE session_id = $1
		ORDER BY round, created_at, id`

	rows, err := db.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []types.Question
	for rows.Next() {
		var (
			q       types.Question
			qType   string
			optJSON []byte
		)
		if err := rows.Scan(&q.ID, &q.SessionID, &q.GapID, &q.Round, &qType,
			&q.Text, &optJSON, &q.Rationale, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Type = types.QuestionType(qType)
		if len(optJSON) > 0 {
			if err := json.Unmarshal(optJSON, &q.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal question options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListRoundQuestions returns the questions generated for a single round.
func (db *DB) ListRoundQuestions(ctx context.Context, sessionID uuid.UUID, round int) ([]types.Question, error) {
	all, err := db.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var out []types.Question
	for _, q := range all {
		if q.Round == round {
			out = append(out, q)
		}
	}
	return out, nil
}

// InsertAnswers stores a batch of answers transactionally. Re-answering a
// question overwrites the previous answer.
func (db *DB) InsertAnswers(ctx context.Context, answers []types.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO session_answers (question_id, session_id, answer, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question_id) DO UPDATE
		SET answer = EXCLUDED.answer, confidence = EXCLUDED.confidence, created_at = EXCLUDED.created_at`

	for _, a := range answers {
		_, err = tx.Exec(ctx, query,
			a.QuestionID, a.SessionID, a.Answer, a.Confidence, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert answer: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit answers: %w", err)
	}
	return nil
}

// ListAnswered joins questions with their answers for prompt assembly,
// ordered the same way the questions were asked.
func (db *DB) ListAnswered(ctx context.Context, sessionID uuid.UUID) ([]types.AnsweredQuestion, error) {
	query := `
		SELECT q.id, q.session_id, q.gap_id, q.round, q.question_type, q.question_text,
		       q.options, q.rationale, q.created_at,
		       a.answer, a.confidence, a.created_at
		FROM session_questions q
		JOIN session_answers a ON a.question_id = q.id
		WHERE q.session_id = $1
		ORDER BY q.round, q.created_at, q.id`

	rows, err := db.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answered questions: %w", err)
	}
	defer rows.Close()

	var out []types.AnsweredQuestion
	for rows.Next() {
		var (
			aq      types.AnsweredQuestion
			qType   string
			conf    string
			optJSON []byte
		)
		if err := rows.Scan(
			&aq.Question.ID, &aq.Question.SessionID, &aq.Question.GapID,
			&aq.Question.Round, &qType, &aq.Question.Text,
			&optJSON, &aq.Question.Rationale, &aq.Question.CreatedAt,
			&aq.Answer.Answer, &conf, &aq.Answer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answered question: %w", err)
		}
		aq.Question.Type = types.QuestionType(qType)
		aq.Answer.QuestionID = aq.Question.ID
		aq.Answer.SessionID = aq.Question.SessionID
		aq.Answer.Confidence = conf
		if len(optJSON) > 0 {
			if err := json.Unmarshal(optJSON, &aq.Question.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal question options: %w", err)
			}
		}
		out = append(out, aq)
	}
	return out, rows.Err()
}
