package drafting

import (
	"encoding/json"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// FallbackDraft builds a best-effort draft from a response that failed schema
// validation. Whatever sections parsed are kept; the rest are filled with
// empty bodies so downstream code never sees a short section list.
func FallbackDraft(responseText string) *types.Draft {
	var draft types.Draft
	// Tolerant decode: a partial object still yields the fields that matched
	if err := json.Unmarshal([]byte(responseText), &draft); err != nil {
		draft = types.Draft{}
	}
	NormalizeDraft(&draft)
	return &draft
}

// NormalizeDraft guarantees the five canonical sections in report order and
// non-nil arrays throughout
func NormalizeDraft(d *types.Draft) {
	byKey := make(map[string]types.DraftSection, len(d.Sections))
	for _, section := range d.Sections {
		if section.EvidenceIDs == nil {
			section.EvidenceIDs = []string{}
		}
		byKey[section.Key] = section
	}

	sections := make([]types.DraftSection, 0, 5)
	for _, key := range types.SectionKeys() {
		if section, ok := byKey[key]; ok {
			sections = append(sections, section)
			continue
		}
		sections = append(sections, types.DraftSection{
			Key:         key,
			Title:       key,
			EvidenceIDs: []string{},
		})
	}
	d.Sections = sections

	if d.EvidenceIDsUsed == nil {
		d.EvidenceIDsUsed = []string{}
	}
	if d.GapsMarked == nil {
		d.GapsMarked = []string{}
	}
}
