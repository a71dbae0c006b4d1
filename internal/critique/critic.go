// Package critique wraps the draft critic collaborator: per-round assessment
// of a draft (gaps, quality, candidate questions) and the final polish pass.
package critique

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kmatsumoto/maturity-interpreter/internal/llm"
	"github.com/kmatsumoto/maturity-interpreter/internal/prompts"
	"github.com/kmatsumoto/maturity-interpreter/internal/schemas"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// Critic calls the LLM to assess and finalize drafts
type Critic struct {
	client  llm.Client
	timeout time.Duration
}

// NewCritic creates a critic bound to an LLM client.
// The timeout bounds each collaborator call attempt.
func NewCritic(client llm.Client, timeout time.Duration) *Critic {
	return &Critic{client: client, timeout: timeout}
}

// Assess critiques a draft against the diagnostic input.
//
// A malformed response does not fail the round: the fallback assessment has
// no gaps, no questions, and a yellow quality rating, which lets the pipeline
// proceed toward finalizing. Only an exhausted collaborator call errors.
func (c *Critic) Assess(ctx context.Context, draft *types.Draft, diag *types.DiagnosticInput) (*types.Assessment, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return nil, &APICallError{Message: "failed to encode draft", Cause: err}
	}
	diagJSON, err := json.Marshal(diag)
	if err != nil {
		return nil, &APICallError{Message: "failed to encode diagnostics", Cause: err}
	}

	template := prompts.MustGet("interpret.json", "assess-draft")
	prompt := prompts.Format(template, map[string]string{
		"Diagnostics": string(diagJSON),
		"Draft":       string(draftJSON),
	})

	responseText, err := llm.GenerateJSONBounded(ctx, c.client, prompt, llm.TierStandard, c.timeout)
	if err != nil {
		return nil, &APICallError{Message: "collaborator call exhausted", Cause: err}
	}

	if err := schemas.Validate(schemas.SchemaAssessment, responseText); err != nil {
		return FallbackAssessment(responseText), nil
	}

	var assessment types.Assessment
	if err := json.Unmarshal([]byte(responseText), &assessment); err != nil {
		return FallbackAssessment(responseText), nil
	}
	NormalizeAssessment(&assessment)
	return &assessment, nil
}

// Finalize runs the final polish pass over an accepted draft
func (c *Critic) Finalize(ctx context.Context, draft *types.Draft, forbiddenPhrases []string) (*types.FinalReview, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return nil, &APICallError{Message: "failed to encode draft", Cause: err}
	}

	template := prompts.MustGet("interpret.json", "finalize-draft")
	prompt := prompts.Format(template, map[string]string{
		"ForbiddenPhrases": strings.Join(forbiddenPhrases, "\n"),
		"Draft":            string(draftJSON),
	})

	responseText, err := llm.GenerateJSONBounded(ctx, c.client, prompt, llm.TierStandard, c.timeout)
	if err != nil {
		return nil, &APICallError{Message: "collaborator call exhausted", Cause: err}
	}

	if err := schemas.Validate(schemas.SchemaFinalReview, responseText); err != nil {
		return FallbackFinalReview(responseText), nil
	}

	var review types.FinalReview
	if err := json.Unmarshal([]byte(responseText), &review); err != nil {
		return FallbackFinalReview(responseText), nil
	}
	NormalizeFinalReview(&review)
	return &review, nil
}
