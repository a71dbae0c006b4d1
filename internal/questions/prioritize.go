// Package questions decides which critic-reported gaps become user-facing
// clarifying questions, and enforces the hard budgets on how many may be
// asked per round and per session.
package questions

import (
	"sort"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// PrioritizeGaps orders gaps by severity descending, with ties broken by the
// critic's original order. The sort must be stable: identical critic output
// always yields identical question selection.
//
// Gaps whose related evidence is already fully cited by the draft are moved
// behind the rest. They flag redundant rather than missing information, so a
// prose rewrite serves them better than a user question.
func PrioritizeGaps(gaps []types.Gap, draft *types.Draft) []types.Gap {
	ordered := make([]types.Gap, len(gaps))
	copy(ordered, gaps)

	var cited map[string]bool
	if draft != nil {
		cited = make(map[string]bool)
		for _, id := range draft.CitedEvidenceIDs() {
			cited[id] = true
		}
	}

	redundant := func(gap types.Gap) bool {
		if len(gap.RelatedEvidenceIDs) == 0 || cited == nil {
			return false
		}
		for _, id := range gap.RelatedEvidenceIDs {
			if !cited[id] {
				return false
			}
		}
		return true
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := redundant(ordered[i]), redundant(ordered[j])
		if ri != rj {
			return !ri
		}
		return ordered[i].Severity > ordered[j].Severity
	})

	return ordered
}
