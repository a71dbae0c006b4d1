package actionplan

import (
	"fmt"
	"sort"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// placement reasons, used to build the rationale triple
const (
	reasonCritical = "critical"
	reasonGate     = "gate"
	reasonFocus    = "focus"
	reasonScore    = "score"
)

// BuildPlan selects and buckets candidate actions under the capacity caps.
//
// Ordering is strict:
//  1. critical candidates are force-placed in the 6m bucket regardless of
//     score; overflow beyond the 6m cap stays in the plan flagged
//     over-capacity (critical items are never silently dropped)
//  2. remaining 6m room goes to gate blockers, nearest level first
//  3. remaining room across 6m, 12m, 24m goes to priority-focus matches,
//     then ascending objective score (worst objectives first)
//
// Candidates left over when the 24m cap is exhausted are omitted; that is
// cap behavior, not an error.
func BuildPlan(candidates []types.CandidateAction, capacity types.CapacityResult, priorityFocus []string) (*types.ActionPlan, error) {
	if err := ValidateCapacity(capacity); err != nil {
		return nil, err
	}

	c6 := capacity.MaxActions[types.Timeline6M]
	c12 := capacity.MaxActions[types.Timeline12M]
	c24 := capacity.MaxActions[types.Timeline24M]

	var criticals, gateBlockers, rest []types.CandidateAction
	for _, candidate := range candidates {
		switch {
		case candidate.IsCritical:
			criticals = append(criticals, candidate)
		case candidate.IsGateBlocker:
			gateBlockers = append(gateBlockers, candidate)
		default:
			rest = append(rest, candidate)
		}
	}

	// Worst-scoring criticals lead; ties keep input order
	sort.SliceStable(criticals, func(i, j int) bool {
		return criticals[i].ObjectiveScore < criticals[j].ObjectiveScore
	})
	sort.SliceStable(gateBlockers, func(i, j int) bool {
		return gateBlockers[i].GateLevel < gateBlockers[j].GateLevel
	})

	plan := &types.ActionPlan{Capacity: capacity}
	rank := 0
	emit := func(candidate types.CandidateAction, timeline, reason string, overCapacity bool) {
		rank++
		plan.Actions = append(plan.Actions, types.PlannedAction{
			CandidateAction: candidate,
			Timeline:        timeline,
			PriorityRank:    rank,
			OverCapacity:    overCapacity,
			Rationale:       buildRationale(candidate, timeline, reason),
		})
	}

	// Step 1: criticals own the 6m bucket, cap or not
	for i, candidate := range criticals {
		emit(candidate, types.Timeline6M, reasonCritical, i >= c6)
	}
	placed := len(criticals)
	in6m := len(criticals)

	// Step 2: gate blockers fill whatever 6m room criticals left
	gateIdx := 0
	for gateIdx < len(gateBlockers) && in6m < c6 {
		emit(gateBlockers[gateIdx], types.Timeline6M, reasonGate, false)
		gateIdx++
		in6m++
		placed++
	}

	// Step 3: everything else competes on focus tags, then score.
	// Unplaced gate blockers rejoin the general pool here.
	focus := make(map[string]bool, len(priorityFocus))
	for _, tag := range priorityFocus {
		focus[tag] = true
	}
	matchesFocus := func(candidate types.CandidateAction) bool {
		for _, tag := range candidate.Tags {
			if focus[tag] {
				return true
			}
		}
		return false
	}

	pool := append(gateBlockers[gateIdx:], rest...)
	sort.SliceStable(pool, func(i, j int) bool {
		fi, fj := matchesFocus(pool[i]), matchesFocus(pool[j])
		if fi != fj {
			return fi
		}
		return pool[i].ObjectiveScore < pool[j].ObjectiveScore
	})

	for _, candidate := range pool {
		reason := reasonScore
		if matchesFocus(candidate) {
			reason = reasonFocus
		}
		switch {
		case in6m < c6 && placed < c24:
			emit(candidate, types.Timeline6M, reason, false)
			in6m++
			placed++
		case placed < c12:
			emit(candidate, types.Timeline12M, reason, false)
			placed++
		case placed < c24:
			emit(candidate, types.Timeline24M, reason, false)
			placed++
		default:
			// cap exhaustion: omitted, derivable from rank order
		}
	}

	return plan, nil
}

// buildRationale fills the mandatory explanation triple for an emitted action
func buildRationale(candidate types.CandidateAction, timeline, reason string) types.ActionRationale {
	var why, whyTimeline string
	switch reason {
	case reasonCritical:
		why = fmt.Sprintf("Objective %s carries a critical failure scoring %d/100; remediation cannot wait.",
			candidate.ObjectiveID, candidate.ObjectiveScore)
		whyTimeline = "Critical failures are always scheduled in the first six months."
	case reasonGate:
		why = fmt.Sprintf("Objective %s blocks advancement at maturity level %d.",
			candidate.ObjectiveID, candidate.GateLevel)
		whyTimeline = fmt.Sprintf("Clearing the level-%d gate early unblocks the rest of the roadmap.", candidate.GateLevel)
	case reasonFocus:
		why = fmt.Sprintf("Objective %s matches a stated priority focus area (score %d/100).",
			candidate.ObjectiveID, candidate.ObjectiveScore)
		whyTimeline = timelineRationale(timeline)
	default:
		why = fmt.Sprintf("Objective %s is among the weakest remaining at %d/100.",
			candidate.ObjectiveID, candidate.ObjectiveScore)
		whyTimeline = timelineRationale(timeline)
	}

	return types.ActionRationale{
		WhySelected:     why,
		WhyThisTimeline: whyTimeline,
		ExpectedImpact: fmt.Sprintf("%s: %s", candidate.ExpertAction.Title,
			candidate.ExpertAction.Recommendation),
	}
}

func timelineRationale(timeline string) string {
	switch timeline {
	case types.Timeline6M:
		return "Capacity remains in the first six months, so this lands in the earliest window."
	case types.Timeline12M:
		return "The six-month window is full; this is the next item within twelve-month capacity."
	default:
		return "Scheduled in the two-year window once nearer-term capacity is committed."
	}
}
