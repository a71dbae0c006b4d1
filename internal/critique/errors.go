package critique

import "fmt"

// APICallError represents an error from the draft critic collaborator
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("critique failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("critique failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}
