package llm

import (
	"context"
	"time"
)

// CallError wraps a collaborator call failure with the attempt count, so the
// orchestrator can distinguish a fully exhausted call from a transient one.
type CallError struct {
	Attempts int
	Cause    error
}

func (e *CallError) Error() string {
	return "collaborator call failed after retry: " + e.Cause.Error()
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// GenerateJSONBounded runs GenerateJSON under a per-attempt timeout with
// exactly one retry on failure. A timeout or provider error is recoverable
// once; the second failure is returned as a *CallError and is fatal to the
// session.
func GenerateJSONBounded(ctx context.Context, client Client, prompt string, tier ModelTier, timeout time.Duration) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		text, err := client.GenerateJSON(attemptCtx, prompt, tier)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
		// Do not retry when the parent context itself is done
		if ctx.Err() != nil {
			return "", &CallError{Attempts: attempt, Cause: ctx.Err()}
		}
	}
	return "", &CallError{Attempts: 2, Cause: lastErr}
}
