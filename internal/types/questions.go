package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuestionType classifies how a clarifying question is answered
type QuestionType string

// Question type constants
const (
	QuestionYesNo    QuestionType = "yes_no"
	QuestionMCQ      QuestionType = "mcq"
	QuestionFreeText QuestionType = "free_text"
)

// Answer confidence markers. Intake sets ConfidenceLow when the user answered
// unusually fast; storage treats it as an opaque label.
const (
	ConfidenceNormal = "normal"
	ConfidenceLow    = "low"
)

// OptionOther is the catch-all choice appended to every mcq question
const OptionOther = "Other"

// Question is a clarifying question asked of the user. Questions are owned by
// a session and immutable once asked.
type Question struct {
	ID        uuid.UUID    `json:"question_id"`
	SessionID uuid.UUID    `json:"session_id"`
	GapID     string       `json:"gap_id"`
	Round     int          `json:"round"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	Options   []string     `json:"options,omitempty"`
	Rationale string       `json:"rationale"`
	CreatedAt time.Time    `json:"created_at"`
}

// Validate checks structural constraints on a question before it is persisted
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	switch q.Type {
	case QuestionYesNo, QuestionFreeText:
		if len(q.Options) > 0 {
			return fmt.Errorf("options are only valid for mcq questions")
		}
	case QuestionMCQ:
		// 2-4 substantive options plus the trailing "Other"
		if len(q.Options) < 3 || len(q.Options) > 5 {
			return fmt.Errorf("mcq questions require 2-4 options plus a trailing %q, got %d", OptionOther, len(q.Options))
		}
		if q.Options[len(q.Options)-1] != OptionOther {
			return fmt.Errorf("mcq options must end with %q", OptionOther)
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// NormalizeMCQOptions truncates a candidate option list to at most four
// substantive choices and guarantees the trailing catch-all
func NormalizeMCQOptions(options []string) []string {
	cleaned := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" || strings.EqualFold(opt, OptionOther) {
			continue
		}
		cleaned = append(cleaned, opt)
	}
	if len(cleaned) > 4 {
		cleaned = cleaned[:4]
	}
	return append(cleaned, OptionOther)
}

// Answer records the user's response to a question. Answers are appended by
// the intake collaborator and never mutated.
type Answer struct {
	QuestionID uuid.UUID `json:"question_id"`
	SessionID  uuid.UUID `json:"session_id"`
	Answer     string    `json:"answer"`
	Confidence string    `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnsweredQuestion pairs a question with its answer for prompt construction
type AnsweredQuestion struct {
	Question Question `json:"question"`
	Answer   Answer   `json:"answer"`
}
