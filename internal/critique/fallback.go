package critique

import (
	"encoding/json"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// FallbackAssessment builds a best-effort assessment from a response that
// failed schema validation. Missing arrays default to empty and a missing or
// unrecognized quality rating defaults to the middle value.
func FallbackAssessment(responseText string) *types.Assessment {
	var assessment types.Assessment
	if err := json.Unmarshal([]byte(responseText), &assessment); err != nil {
		assessment = types.Assessment{}
	}
	NormalizeAssessment(&assessment)
	return &assessment
}

// NormalizeAssessment fills defaults and drops structurally unusable entries
func NormalizeAssessment(a *types.Assessment) {
	switch a.OverallQuality {
	case types.QualityRed, types.QualityYellow, types.QualityGreen:
	default:
		a.OverallQuality = types.QualityYellow
	}

	gaps := make([]types.Gap, 0, len(a.Gaps))
	for _, gap := range a.Gaps {
		if gap.GapID == "" || gap.Description == "" {
			continue
		}
		if gap.Severity < 1 {
			gap.Severity = 1
		}
		if gap.Severity > 5 {
			gap.Severity = 5
		}
		if gap.RelatedEvidenceIDs == nil {
			gap.RelatedEvidenceIDs = []string{}
		}
		gaps = append(gaps, gap)
	}
	a.Gaps = gaps

	questions := make([]types.CandidateQuestion, 0, len(a.GeneratedQuestions))
	for _, q := range a.GeneratedQuestions {
		if q.Text == "" {
			continue
		}
		switch q.Type {
		case types.QuestionYesNo, types.QuestionFreeText:
			q.Options = nil
		case types.QuestionMCQ:
			q.Options = types.NormalizeMCQOptions(q.Options)
			// An mcq without substantive options degrades to free text
			if len(q.Options) < 3 {
				q.Type = types.QuestionFreeText
				q.Options = nil
			}
		default:
			q.Type = types.QuestionFreeText
			q.Options = nil
		}
		questions = append(questions, q)
	}
	a.GeneratedQuestions = questions

	if a.RewriteInstructions == nil {
		a.RewriteInstructions = []string{}
	}
}

// FallbackFinalReview builds a best-effort final review. An unreadable
// response is not a "not ready" signal, so the fallback accepts the draft.
func FallbackFinalReview(responseText string) *types.FinalReview {
	var review types.FinalReview
	if err := json.Unmarshal([]byte(responseText), &review); err != nil {
		review = types.FinalReview{Ready: true}
	}
	NormalizeFinalReview(&review)
	return &review
}

// NormalizeFinalReview fills nil arrays
func NormalizeFinalReview(r *types.FinalReview) {
	if r.Edits == nil {
		r.Edits = []string{}
	}
	if r.ForbiddenMatches == nil {
		r.ForbiddenMatches = []string{}
	}
}
