package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// fakeGenerator returns a canned draft and counts calls
type fakeGenerator struct {
	calls   int
	draft   *types.Draft
	drafts  []*types.Draft // scripted per-call drafts, then draft
	err     error
	rewrite [][]string // rewrite instructions observed per call
}

func (f *fakeGenerator) Generate(_ context.Context, _ *types.DiagnosticInput, _ []types.AnsweredQuestion, rewriteInstructions []string) (*types.Draft, error) {
	f.calls++
	f.rewrite = append(f.rewrite, rewriteInstructions)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.drafts) > 0 {
		d := f.drafts[0]
		f.drafts = f.drafts[1:]
		return d, nil
	}
	return f.draft, nil
}

// fakeCritic yields scripted assessments in order, then empty ones
type fakeCritic struct {
	assessments   []*types.Assessment
	assessCalls   int
	finalizeCalls int
	reviews       []*types.FinalReview
	finalizeErr   error
}

func (f *fakeCritic) Assess(_ context.Context, _ *types.Draft, _ *types.DiagnosticInput) (*types.Assessment, error) {
	f.assessCalls++
	if len(f.assessments) > 0 {
		a := f.assessments[0]
		f.assessments = f.assessments[1:]
		return a, nil
	}
	return &types.Assessment{OverallQuality: types.QualityGreen}, nil
}

func (f *fakeCritic) Finalize(_ context.Context, _ *types.Draft, _ []string) (*types.FinalReview, error) {
	f.finalizeCalls++
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	if len(f.reviews) > 0 {
		r := f.reviews[0]
		f.reviews = f.reviews[1:]
		return r, nil
	}
	return &types.FinalReview{Ready: true}, nil
}

func testDiagnostics() types.DiagnosticInput {
	return types.DiagnosticInput{
		Objectives: []types.Objective{
			{ID: "governance", Name: "Governance", Score: 45},
			{ID: "automation", Name: "Automation", Score: 62},
		},
		FailedGates: []types.FailedGate{
			{Level: 2, ObjectiveID: "governance", Description: "no review board"},
		},
	}
}

func testDraft() *types.Draft {
	sections := make([]types.DraftSection, 0, 5)
	for _, key := range types.SectionKeys() {
		sections = append(sections, types.DraftSection{
			Key:         key,
			Title:       key,
			Body:        "narrative for " + key,
			EvidenceIDs: []string{"obj:governance"},
		})
	}
	return &types.Draft{Sections: sections}
}

func assessmentWithQuestions(n int, gapID string) *types.Assessment {
	a := &types.Assessment{
		OverallQuality: types.QualityYellow,
		Gaps: []types.Gap{
			{GapID: gapID, Section: types.SectionRisks, Description: "unclear ownership", Severity: 4},
		},
	}
	for i := 0; i < n; i++ {
		a.GeneratedQuestions = append(a.GeneratedQuestions, types.CandidateQuestion{
			GapID:     gapID,
			Type:      types.QuestionFreeText,
			Text:      fmt.Sprintf("question %d about %s", i, gapID),
			Rationale: "clarifies the gap",
		})
	}
	return a
}

func answerAll(t *testing.T, o *Orchestrator, runID uuid.UUID) *db.SessionRecord {
	t.Helper()
	open, err := o.OpenQuestions(context.Background(), runID)
	require.NoError(t, err)
	require.NotEmpty(t, open)

	subs := make([]AnswerSubmission, 0, len(open))
	for _, q := range open {
		subs = append(subs, AnswerSubmission{QuestionID: q.ID, Answer: "yes, confirmed"})
	}
	rec, err := o.SubmitAnswers(context.Background(), runID, subs, nil)
	require.NoError(t, err)
	return rec
}

func TestStartCompletesWithoutQuestions(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())

	rec, err := o.Start(context.Background(), StartRequest{
		RunID:       uuid.New(),
		Diagnostics: testDiagnostics(),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 0, rec.TotalQuestionsAsked)
	require.NotNil(t, rec.Report)
	assert.Equal(t, []string{"obj:governance"}, rec.Report.EvidenceManifest)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, critic.finalizeCalls)
}

func TestQuestionBudgetAcrossRounds(t *testing.T) {
	// Round 1 proposes 4 questions, round 2 proposes 4 more. With a budget
	// of 5 total and 3 per round, the rounds ask 3 then 2, and nothing more.
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{
		assessments: []*types.Assessment{
			assessmentWithQuestions(4, "gap-a"),
			assessmentWithQuestions(4, "gap-b"),
			assessmentWithQuestions(4, "gap-c"),
		},
	}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	rec, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAwaitingUser, rec.Status)
	assert.Equal(t, 1, rec.CurrentRound)
	assert.Equal(t, 3, rec.TotalQuestionsAsked)

	rec = answerAll(t, o, runID)
	assert.Equal(t, types.StatusAwaitingUser, rec.Status)
	assert.Equal(t, 2, rec.CurrentRound)
	assert.Equal(t, 5, rec.TotalQuestionsAsked)

	// Budget and round limits are both spent; the third assessment's
	// questions must be discarded and the run must finish.
	rec = answerAll(t, o, runID)
	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 5, rec.TotalQuestionsAsked)
}

func TestRoundCutoffOverridesSeverity(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxRounds = 1
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{
		assessments: []*types.Assessment{
			assessmentWithQuestions(2, "gap-a"),
			assessmentWithQuestions(3, "gap-severe"), // arrives after the last round
		},
	}
	o := New(NewMemoryStore(), gen, critic, limits)
	runID := uuid.New()

	rec, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAwaitingUser, rec.Status)

	rec = answerAll(t, o, runID)
	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 2, rec.TotalQuestionsAsked)
}

func TestStartIsIdempotent(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{assessments: []*types.Assessment{assessmentWithQuestions(2, "gap-a")}}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	first, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAwaitingUser, first.Status)

	second, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, types.StatusAwaitingUser, second.Status)
	assert.Equal(t, 1, gen.calls, "a repeated start must not regenerate")
}

func TestRestartDiscardsPreviousSession(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())
	runID := uuid.New()

	first, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	require.Equal(t, types.StatusComplete, first.Status)

	second, err := o.Start(context.Background(), StartRequest{
		RunID:       runID,
		Diagnostics: testDiagnostics(),
		Restart:     true,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, types.StatusComplete, second.Status)
	assert.Equal(t, 2, gen.calls)
}

func TestRestartIgnoredForLiveSession(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{assessments: []*types.Assessment{assessmentWithQuestions(2, "gap-a")}}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	first, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)
	require.Equal(t, types.StatusAwaitingUser, first.Status)

	// A session waiting on the user is live; the restart flag must not
	// discard it or its open questions.
	second, err := o.Start(context.Background(), StartRequest{
		RunID:       runID,
		Diagnostics: testDiagnostics(),
		Restart:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, types.StatusAwaitingUser, second.Status)
	assert.Equal(t, 1, gen.calls)

	open, err := o.OpenQuestions(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestRestartClearsFailedSession(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider unavailable")}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())
	runID := uuid.New()

	_, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.Error(t, err)

	gen.err = nil
	gen.draft = testDraft()
	rec, err := o.Start(context.Background(), StartRequest{
		RunID:       runID,
		Diagnostics: testDiagnostics(),
		Restart:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusComplete, rec.Status)
}

func TestGeneratorFailureMarksSessionFailed(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider unavailable")}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())
	runID := uuid.New()

	rec, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.Error(t, err)

	var collabErr *CollaboratorError
	require.ErrorAs(t, err, &collabErr)
	assert.Equal(t, "draft generation", collabErr.Stage)

	require.NotNil(t, rec)
	assert.Equal(t, types.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "provider unavailable")

	stored, err := o.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, stored.Status)
}

func TestSubmitAnswersRejectsPartialRound(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{assessments: []*types.Assessment{assessmentWithQuestions(3, "gap-a")}}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	_, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	open, err := o.OpenQuestions(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, open, 3)

	_, err = o.SubmitAnswers(context.Background(), runID, []AnswerSubmission{
		{QuestionID: open[0].ID, Answer: "partial"},
	}, nil)

	var incomplete *IncompleteAnswersError
	require.ErrorAs(t, err, &incomplete)
	assert.Len(t, incomplete.Missing, 2)

	// The rejection must leave the session untouched.
	rec, err := o.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAwaitingUser, rec.Status)
	assert.Equal(t, 1, rec.CurrentRound)
}

func TestSubmitAnswersRejectsUnknownQuestion(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{assessments: []*types.Assessment{assessmentWithQuestions(1, "gap-a")}}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	_, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	_, err = o.SubmitAnswers(context.Background(), runID, []AnswerSubmission{
		{QuestionID: uuid.New(), Answer: "for a question nobody asked"},
	}, nil)

	var unknown *UnknownQuestionError
	assert.ErrorAs(t, err, &unknown)
}

func TestSubmitAnswersWrongState(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())
	runID := uuid.New()

	_, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	_, err = o.SubmitAnswers(context.Background(), runID, nil, nil)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, types.StatusComplete, invalid.Status)
}

func TestSubmitAnswersUnknownRun(t *testing.T) {
	o := New(NewMemoryStore(), &fakeGenerator{draft: testDraft()}, &fakeCritic{}, DefaultLimits())

	_, err := o.SubmitAnswers(context.Background(), uuid.New(), nil, nil)
	var notFound *RunNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestFinalizeLoopsBackExactlyOnce(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{
		reviews: []*types.FinalReview{
			{Ready: false, Edits: []string{"tighten the outlook section"}},
			{Ready: false, Edits: []string{"still not happy"}}, // force-accepted anyway
		},
	}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())

	rec, err := o.Start(context.Background(), StartRequest{RunID: uuid.New(), Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, critic.finalizeCalls)
	require.GreaterOrEqual(t, len(gen.rewrite), 2)
	assert.Contains(t, gen.rewrite[1], "tighten the outlook section")
}

func TestUnknownCitationLoopsBackAtFinalize(t *testing.T) {
	// The first draft cites evidence that exists nowhere in the diagnostics.
	// Even with an approving final review, the gate must send the draft back
	// for a rewrite naming the bad citation.
	dirty := testDraft()
	dirty.Sections[0].EvidenceIDs = append(dirty.Sections[0].EvidenceIDs, "obj:nonexistent")
	gen := &fakeGenerator{
		drafts: []*types.Draft{dirty},
		draft:  testDraft(),
	}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())

	rec, err := o.Start(context.Background(), StartRequest{RunID: uuid.New(), Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 2, gen.calls)
	require.GreaterOrEqual(t, len(gen.rewrite), 2)
	assert.Contains(t, gen.rewrite[1], "Remove citations of unknown evidence ids: [obj:nonexistent]")

	require.NotNil(t, rec.Report)
	for _, section := range rec.Report.Draft.Sections {
		assert.NotContains(t, section.EvidenceIDs, "obj:nonexistent")
	}
}

func TestLoopBackSkipsFurtherQuestionRounds(t *testing.T) {
	// After a finalize loop-back the regenerated draft returns straight to
	// the gate: a fresh question round would let a user round-trip restart
	// the loop-back allowance.
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{
		assessments: []*types.Assessment{
			{OverallQuality: types.QualityGreen},
			assessmentWithQuestions(2, "gap-late"), // produced after the loop-back
		},
		reviews: []*types.FinalReview{
			{Ready: false, Edits: []string{"rework the risks section"}},
			{Ready: false, Edits: []string{"still unhappy"}}, // force-accepted
		},
	}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())

	var stages []string
	rec, err := o.Start(context.Background(), StartRequest{
		RunID:       uuid.New(),
		Diagnostics: testDiagnostics(),
		Progress: func(stage string, _ *db.SessionRecord) {
			stages = append(stages, stage)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, rec.Status)
	assert.Equal(t, 0, rec.TotalQuestionsAsked)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, critic.finalizeCalls)
	assert.NotContains(t, stages, string(types.StatusAwaitingUser))
}

func TestInvalidDiagnosticsRejected(t *testing.T) {
	o := New(NewMemoryStore(), &fakeGenerator{draft: testDraft()}, &fakeCritic{}, DefaultLimits())

	_, err := o.Start(context.Background(), StartRequest{
		RunID:       uuid.New(),
		Diagnostics: types.DiagnosticInput{},
	})
	var inputErr *InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestReportIncludesActionPlan(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())

	candidates := []types.CandidateAction{
		{QuestionID: "q1", ObjectiveID: "governance", ObjectiveScore: 45, IsCritical: true,
			ExpertAction: types.ExpertAction{Title: "Stand up a review board", Recommendation: "Form a board"}},
		{QuestionID: "q2", ObjectiveID: "automation", ObjectiveScore: 62,
			ExpertAction: types.ExpertAction{Title: "Automate deployments", Recommendation: "Adopt CD"}},
	}
	rec, err := o.Start(context.Background(), StartRequest{
		RunID:            uuid.New(),
		Diagnostics:      testDiagnostics(),
		CandidateActions: candidates,
	})
	require.NoError(t, err)
	require.NotNil(t, rec.Report)
	require.NotNil(t, rec.Report.ActionPlan)
	assert.Len(t, rec.Report.ActionPlan.Actions, 2)

	for _, action := range rec.Report.ActionPlan.Actions {
		assert.NotEmpty(t, action.Rationale.WhySelected)
		assert.NotEmpty(t, action.Rationale.WhyThisTimeline)
		assert.NotEmpty(t, action.Rationale.ExpectedImpact)
	}
}

func TestProgressEventsInOrder(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	o := New(NewMemoryStore(), gen, &fakeCritic{}, DefaultLimits())

	var stages []string
	_, err := o.Start(context.Background(), StartRequest{
		RunID:       uuid.New(),
		Diagnostics: testDiagnostics(),
		Progress: func(stage string, _ *db.SessionRecord) {
			stages = append(stages, stage)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pending", "generating", "assessed", "finalizing", "complete"}, stages)
}

func TestReportOnlyAfterCompletion(t *testing.T) {
	gen := &fakeGenerator{draft: testDraft()}
	critic := &fakeCritic{assessments: []*types.Assessment{assessmentWithQuestions(1, "gap-a")}}
	o := New(NewMemoryStore(), gen, critic, DefaultLimits())
	runID := uuid.New()

	_, err := o.Start(context.Background(), StartRequest{RunID: runID, Diagnostics: testDiagnostics()})
	require.NoError(t, err)

	_, err = o.Report(context.Background(), runID)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)

	answerAll(t, o, runID)
	report, err := o.Report(context.Background(), runID)
	require.NoError(t, err)
	assert.False(t, report.GeneratedAt.IsZero())
}
