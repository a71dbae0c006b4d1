// Package validation holds the cross-cutting quality checks applied to drafts
// before they become reports: evidence-citation verification and the
// forbidden-phrase screen.
package validation

import (
	"sort"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// UnknownCitations returns every evidence ID cited anywhere in the draft that
// is not in the allowed set for the run, sorted for deterministic output.
//
// Unknown citations are a hard defect handled at the finalizing gate; they
// are reported, never silently stripped.
func UnknownCitations(draft *types.Draft, allowed map[string]bool) []string {
	seen := make(map[string]bool)
	var unknown []string

	record := func(id string) {
		if id == "" || allowed[id] || seen[id] {
			return
		}
		seen[id] = true
		unknown = append(unknown, id)
	}

	for _, section := range draft.Sections {
		for _, id := range section.EvidenceIDs {
			record(id)
		}
	}
	for _, id := range draft.EvidenceIDsUsed {
		record(id)
	}

	sort.Strings(unknown)
	return unknown
}

// BuildManifest returns the sorted list of allowed evidence IDs the draft
// actually cites, for inclusion in the final report
func BuildManifest(draft *types.Draft, allowed map[string]bool) []string {
	var manifest []string
	for _, id := range draft.CitedEvidenceIDs() {
		if allowed[id] {
			manifest = append(manifest, id)
		}
	}
	sort.Strings(manifest)
	return manifest
}
