// Package drafting wraps the draft generator collaborator: it turns diagnostic
// input and accumulated answers into a structured five-section narrative draft
// with evidence citations.
package drafting

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/kmatsumoto/maturity-interpreter/internal/llm"
	"github.com/kmatsumoto/maturity-interpreter/internal/prompts"
	"github.com/kmatsumoto/maturity-interpreter/internal/schemas"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// Generator calls the LLM to produce narrative drafts
type Generator struct {
	client  llm.Client
	timeout time.Duration
}

// NewGenerator creates a draft generator bound to an LLM client.
// The timeout bounds each collaborator call attempt.
func NewGenerator(client llm.Client, timeout time.Duration) *Generator {
	return &Generator{client: client, timeout: timeout}
}

// Generate produces a draft from the diagnostic input, the answers collected
// so far, and the critic's rewrite instructions from the previous round.
//
// A malformed response is not an error: the result is a best-effort fallback
// draft built from whatever fields parsed. Only an exhausted collaborator
// call (timeout or provider error after one retry) returns an error.
func (g *Generator) Generate(ctx context.Context, diag *types.DiagnosticInput, answers []types.AnsweredQuestion, rewriteInstructions []string) (*types.Draft, error) {
	prompt, err := buildGeneratePrompt(diag, answers, rewriteInstructions)
	if err != nil {
		return nil, &APICallError{Message: "failed to build prompt", Cause: err}
	}

	responseText, err := llm.GenerateJSONBounded(ctx, g.client, prompt, llm.TierAdvanced, g.timeout)
	if err != nil {
		return nil, &APICallError{Message: "collaborator call exhausted", Cause: err}
	}

	if err := schemas.Validate(schemas.SchemaDraft, responseText); err != nil {
		return FallbackDraft(responseText), nil
	}

	var draft types.Draft
	if err := json.Unmarshal([]byte(responseText), &draft); err != nil {
		return FallbackDraft(responseText), nil
	}
	NormalizeDraft(&draft)
	return &draft, nil
}

// buildGeneratePrompt constructs the generation prompt from structured inputs
func buildGeneratePrompt(diag *types.DiagnosticInput, answers []types.AnsweredQuestion, rewriteInstructions []string) (string, error) {
	diagJSON, err := json.Marshal(diag)
	if err != nil {
		return "", err
	}

	answersJSON := "[]"
	if len(answers) > 0 {
		b, err := json.Marshal(answers)
		if err != nil {
			return "", err
		}
		answersJSON = string(b)
	}

	evidenceIDs := make([]string, 0)
	for id := range diag.EvidenceSet() {
		evidenceIDs = append(evidenceIDs, id)
	}
	sort.Strings(evidenceIDs)

	template := prompts.MustGet("interpret.json", "generate-draft")
	return prompts.Format(template, map[string]string{
		"EvidenceIDs":         strings.Join(evidenceIDs, ", "),
		"Diagnostics":         string(diagJSON),
		"Answers":             answersJSON,
		"RewriteInstructions": strings.Join(rewriteInstructions, "\n"),
	}), nil
}
