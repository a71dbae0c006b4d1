package types

import "time"

// Section keys for the five-section narrative draft, in report order
const (
	SectionOverview        = "overview"
	SectionStrengths       = "strengths"
	SectionRisks           = "risks"
	SectionRecommendations = "recommendations"
	SectionOutlook         = "outlook"
)

// SectionKeys returns the canonical section keys in report order
func SectionKeys() []string {
	return []string{
		SectionOverview,
		SectionStrengths,
		SectionRisks,
		SectionRecommendations,
		SectionOutlook,
	}
}

// DraftSection is one narrative section with its supporting evidence citations
type DraftSection struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	EvidenceIDs []string `json:"evidence_ids"`
}

// Draft is a structured narrative draft returned by the draft generator.
// Sections always holds the five canonical sections; missing sections are
// filled with empty bodies during fallback construction.
type Draft struct {
	Sections        []DraftSection `json:"sections"`
	EvidenceIDsUsed []string       `json:"evidence_ids_used"`
	GapsMarked      []string       `json:"gaps_marked"`
}

// Section returns the section with the given key, or nil if absent
func (d *Draft) Section(key string) *DraftSection {
	for i := range d.Sections {
		if d.Sections[i].Key == key {
			return &d.Sections[i]
		}
	}
	return nil
}

// CitedEvidenceIDs returns the union of evidence IDs cited by any section
func (d *Draft) CitedEvidenceIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, section := range d.Sections {
		for _, id := range section.EvidenceIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Report is the final output of a completed session: the accepted draft, the
// manifest of evidence it cites, and the capacity-bounded action plan
type Report struct {
	Draft            Draft       `json:"draft"`
	EvidenceManifest []string    `json:"evidence_manifest"`
	ActionPlan       *ActionPlan `json:"action_plan,omitempty"`
	GeneratedAt      time.Time   `json:"generated_at"`
}
