package db

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionExistsError is returned when a session for the run already exists.
// Existing carries the current record so callers can implement idempotent
// start semantics without a second round trip.
type SessionExistsError struct {
	RunID    uuid.UUID
	Existing *SessionRecord
}

func (e *SessionExistsError) Error() string {
	return fmt.Sprintf("session already exists for run %s", e.RunID)
}

// StaleSessionError is returned when an optimistic update finds the stored
// row no longer matches the expected status and round.
type StaleSessionError struct {
	SessionID uuid.UUID
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("session %s was modified concurrently", e.SessionID)
}
