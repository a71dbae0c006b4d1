package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// RunNotFoundError is returned when no session exists for the run
type RunNotFoundError struct {
	RunID uuid.UUID
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("no session found for run %s", e.RunID)
}

// InvalidStateError is returned when an operation is attempted against a
// session whose status does not admit it.
type InvalidStateError struct {
	Operation string
	Status    types.SessionStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a session in state %q", e.Operation, e.Status)
}

// IncompleteAnswersError is returned when an answer submission does not cover
// every open question of the current round. Partial submissions are rejected
// wholesale so a round's answers land atomically.
type IncompleteAnswersError struct {
	Missing []uuid.UUID
}

func (e *IncompleteAnswersError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf("answers missing for questions: %s", strings.Join(ids, ", "))
}

// UnknownQuestionError is returned when a submission references a question
// that does not belong to the current round.
type UnknownQuestionError struct {
	QuestionID uuid.UUID
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("question %s is not open in the current round", e.QuestionID)
}

// InputError is returned when the diagnostic input fails validation
type InputError struct {
	Cause error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid diagnostic input: %v", e.Cause)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// CollaboratorError is returned when a collaborator call is exhausted and the
// session has been marked failed.
type CollaboratorError struct {
	Stage string
	Cause error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator failure during %s: %v", e.Stage, e.Cause)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}
