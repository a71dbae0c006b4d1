package types

// Quality ratings produced by the draft critic
const (
	QualityRed    = "red"
	QualityYellow = "yellow"
	QualityGreen  = "green"
)

// Gap is a critic-identified deficiency in a draft. Gaps live only for the
// round that produced them; a gap survives only by seeding a Question.
type Gap struct {
	GapID              string   `json:"gap_id"`
	Section            string   `json:"section"`
	Description        string   `json:"description"`
	Severity           int      `json:"severity"` // 1-5, higher is more important
	RelatedEvidenceIDs []string `json:"related_evidence_ids"`
}

// CandidateQuestion is a clarifying question proposed by the critic. It has
// no identity until the allocator keeps it and the orchestrator persists it.
type CandidateQuestion struct {
	GapID     string       `json:"gap_id"`
	Type      QuestionType `json:"type"`
	Text      string       `json:"text"`
	Options   []string     `json:"options,omitempty"`
	Rationale string       `json:"rationale"`
}

// Assessment is the draft critic's verdict for one round
type Assessment struct {
	Gaps                []Gap               `json:"gaps"`
	OverallQuality      string              `json:"overall_quality"`
	RewriteInstructions []string            `json:"rewrite_instructions"`
	GeneratedQuestions  []CandidateQuestion `json:"generated_questions"`
}

// FinalReview is the critic's verdict from the final polish pass
type FinalReview struct {
	Ready            bool     `json:"ready"`
	Edits            []string `json:"edits"`
	ForbiddenMatches []string `json:"forbidden_matches"`
}
