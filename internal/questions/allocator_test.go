package questions

import (
	"fmt"
	"testing"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

func candidateN(n int) []types.CandidateQuestion {
	out := make([]types.CandidateQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.CandidateQuestion{
			GapID: fmt.Sprintf("g%d", i+1),
			Type:  types.QuestionFreeText,
			Text:  fmt.Sprintf("question %d", i+1),
		})
	}
	return out
}

func TestAllocateBudgetAcrossRounds(t *testing.T) {
	alloc := Allocator{MaxQuestionsTotal: 5, MaxQuestionsPerRound: 3, MaxRounds: 5}

	// Round 1: 4 candidates, full budget -> per-round cap of 3 applies
	kept := alloc.Allocate(candidateN(4), nil, 0, 0)
	if len(kept) != 3 {
		t.Fatalf("round 1: expected 3 questions, got %d", len(kept))
	}

	// Round 2: 4 more candidates, only 2 of the total budget remain
	kept = alloc.Allocate(candidateN(4), nil, 3, 1)
	if len(kept) != 2 {
		t.Fatalf("round 2: expected 2 questions, got %d", len(kept))
	}

	// Round 3: budget exhausted -> nothing is asked
	kept = alloc.Allocate(candidateN(4), nil, 5, 2)
	if len(kept) != 0 {
		t.Fatalf("round 3: expected 0 questions, got %d", len(kept))
	}
}

func TestAllocateRoundCutoffIsUnconditional(t *testing.T) {
	alloc := Allocator{MaxQuestionsTotal: 10, MaxQuestionsPerRound: 3, MaxRounds: 3}

	gaps := []types.Gap{{GapID: "g1", Severity: 5, Description: "critical gap"}}
	kept := alloc.Allocate(candidateN(2), gaps, 0, 3)
	if len(kept) != 0 {
		t.Errorf("expected empty result at round limit, got %d questions", len(kept))
	}
}

func TestAllocatePerRoundCapNeverExceeded(t *testing.T) {
	alloc := Allocator{MaxQuestionsTotal: 100, MaxQuestionsPerRound: 3, MaxRounds: 10}

	for _, n := range []int{0, 1, 3, 7, 20} {
		kept := alloc.Allocate(candidateN(n), nil, 0, 0)
		want := n
		if want > 3 {
			want = 3
		}
		if len(kept) != want {
			t.Errorf("n=%d: expected %d questions, got %d", n, want, len(kept))
		}
	}
}

func TestAllocateFollowsGapPriority(t *testing.T) {
	alloc := Allocator{MaxQuestionsTotal: 5, MaxQuestionsPerRound: 2, MaxRounds: 5}

	candidates := []types.CandidateQuestion{
		{GapID: "low", Type: types.QuestionFreeText, Text: "about the low gap"},
		{GapID: "high", Type: types.QuestionFreeText, Text: "about the high gap"},
		{GapID: "mid", Type: types.QuestionFreeText, Text: "about the mid gap"},
	}
	orderedGaps := []types.Gap{
		{GapID: "high", Severity: 5},
		{GapID: "mid", Severity: 3},
		{GapID: "low", Severity: 1},
	}

	kept := alloc.Allocate(candidates, orderedGaps, 0, 0)
	if len(kept) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(kept))
	}
	if kept[0].GapID != "high" || kept[1].GapID != "mid" {
		t.Errorf("expected high,mid order, got %s,%s", kept[0].GapID, kept[1].GapID)
	}
}

func TestAllocateUnknownGapsSortLast(t *testing.T) {
	alloc := Allocator{MaxQuestionsTotal: 10, MaxQuestionsPerRound: 3, MaxRounds: 5}

	candidates := []types.CandidateQuestion{
		{GapID: "orphan-a", Type: types.QuestionFreeText, Text: "a"},
		{GapID: "known", Type: types.QuestionFreeText, Text: "k"},
		{GapID: "orphan-b", Type: types.QuestionFreeText, Text: "b"},
	}
	orderedGaps := []types.Gap{{GapID: "known", Severity: 2}}

	kept := alloc.Allocate(candidates, orderedGaps, 0, 0)
	if len(kept) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(kept))
	}
	if kept[0].GapID != "known" {
		t.Errorf("known gap should lead, got %s", kept[0].GapID)
	}
	// Orphans keep the critic's original relative order
	if kept[1].GapID != "orphan-a" || kept[2].GapID != "orphan-b" {
		t.Errorf("orphan order not stable: %s,%s", kept[1].GapID, kept[2].GapID)
	}
}
