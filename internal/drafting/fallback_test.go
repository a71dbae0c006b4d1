package drafting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

func TestFallbackDraftKeepsParsedSections(t *testing.T) {
	raw := `{
		"sections": [
			{"key": "overview", "title": "Overview", "body": "Solid fundamentals.", "evidence_ids": ["obj:deploy"]}
		],
		"gaps_marked": ["no release evidence"]
	}`

	draft := FallbackDraft(raw)

	require.Len(t, draft.Sections, 5)
	overview := draft.Section(types.SectionOverview)
	require.NotNil(t, overview)
	assert.Equal(t, "Solid fundamentals.", overview.Body)
	assert.Equal(t, []string{"obj:deploy"}, overview.EvidenceIDs)

	// Missing sections come back empty but present, in report order
	for i, key := range types.SectionKeys() {
		assert.Equal(t, key, draft.Sections[i].Key)
		assert.NotNil(t, draft.Sections[i].EvidenceIDs)
	}
	assert.Equal(t, []string{"no release evidence"}, draft.GapsMarked)
	assert.NotNil(t, draft.EvidenceIDsUsed)
}

func TestFallbackDraftUnparseable(t *testing.T) {
	draft := FallbackDraft("not json at all")

	require.Len(t, draft.Sections, 5)
	for _, section := range draft.Sections {
		assert.Empty(t, section.Body)
		assert.Empty(t, section.EvidenceIDs)
	}
	assert.Empty(t, draft.EvidenceIDsUsed)
	assert.Empty(t, draft.GapsMarked)
}

func TestNormalizeDraftPreservesFullDraft(t *testing.T) {
	draft := &types.Draft{
		Sections: []types.DraftSection{
			{Key: types.SectionOutlook, Title: "Outlook", Body: "o"},
			{Key: types.SectionOverview, Title: "Overview", Body: "v"},
			{Key: types.SectionStrengths, Title: "Strengths", Body: "s"},
			{Key: types.SectionRisks, Title: "Risks", Body: "r"},
			{Key: types.SectionRecommendations, Title: "Recommendations", Body: "c"},
		},
	}

	NormalizeDraft(draft)

	// Out-of-order sections are reassembled into report order with bodies intact
	keys := make([]string, 0, len(draft.Sections))
	for _, section := range draft.Sections {
		keys = append(keys, section.Key)
	}
	assert.Equal(t, types.SectionKeys(), keys)
	assert.Equal(t, "v", draft.Section(types.SectionOverview).Body)
	assert.Equal(t, "o", draft.Section(types.SectionOutlook).Body)
}
