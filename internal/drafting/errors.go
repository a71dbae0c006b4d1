package drafting

import "fmt"

// APICallError represents an error from the draft generator collaborator
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("draft generation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("draft generation failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
