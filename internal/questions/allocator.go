package questions

import (
	"sort"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// Allocator is the circuit breaker on clarifying questions. Limits are fixed
// at construction; the zero value asks nothing.
type Allocator struct {
	MaxQuestionsTotal    int
	MaxQuestionsPerRound int
	MaxRounds            int
}

// Allocate selects which candidate questions are actually asked this round.
//
// Candidates are ordered by the priority of their originating gap (see
// PrioritizeGaps), then capped at min(MaxQuestionsPerRound, remaining budget).
// Dropped candidates are gone, not deferred: their gaps may resurface through
// rewrite instructions instead.
//
// When currentRound has reached MaxRounds the result is always empty, even if
// high-severity gaps remain. The cutoff is unconditional: bounded user burden
// wins over completeness.
func (a Allocator) Allocate(candidates []types.CandidateQuestion, orderedGaps []types.Gap, totalAsked, currentRound int) []types.CandidateQuestion {
	if len(candidates) == 0 || currentRound >= a.MaxRounds {
		return nil
	}

	remaining := a.MaxQuestionsTotal - totalAsked
	if remaining <= 0 {
		return nil
	}
	cap := a.MaxQuestionsPerRound
	if remaining < cap {
		cap = remaining
	}

	// Rank candidates by their gap's position in the prioritized order.
	// Candidates whose gap the prioritizer never saw sort last, keeping the
	// critic's original order among themselves.
	gapRank := make(map[string]int, len(orderedGaps))
	for i, gap := range orderedGaps {
		gapRank[gap.GapID] = i
	}

	ordered := make([]types.CandidateQuestion, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iOK := gapRank[ordered[i].GapID]
		rj, jOK := gapRank[ordered[j].GapID]
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		return ri < rj
	})

	if len(ordered) > cap {
		ordered = ordered[:cap]
	}
	return ordered
}
