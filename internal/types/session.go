// Package types defines the shared data model for the interpretation pipeline.
package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of an interpretation session
type SessionStatus string

// Session status constants. The orchestrator's drive loop moves sessions
// along pending -> generating -> assessed -> awaiting_user | finalizing ->
// complete; complete and failed are terminal.
const (
	StatusPending      SessionStatus = "pending"
	StatusGenerating   SessionStatus = "generating"
	StatusAssessed     SessionStatus = "assessed"
	StatusAwaitingUser SessionStatus = "awaiting_user"
	StatusFinalizing   SessionStatus = "finalizing"
	StatusComplete     SessionStatus = "complete"
	StatusFailed       SessionStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
func (s SessionStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Valid reports whether the status is one of the known values
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusAssessed, StatusAwaitingUser,
		StatusFinalizing, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// InterpretationSession is the single aggregate mutated by the orchestrator.
// Exactly one session exists per run_id at any time; the uniqueness constraint
// on run_id in the store is the mutual-exclusion primitive for concurrent
// starts.
type InterpretationSession struct {
	ID                  uuid.UUID     `json:"session_id"`
	RunID               uuid.UUID     `json:"run_id"`
	Status              SessionStatus `json:"status"`
	CurrentRound        int           `json:"current_round"`
	TotalQuestionsAsked int           `json:"total_questions_asked"`
	Draft               *Draft        `json:"draft,omitempty"`
	Report              *Report       `json:"report,omitempty"`
	ErrorMessage        string        `json:"error,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}
