// Package pipeline drives an interpretation session through its lifecycle:
// draft generation, critique, bounded question rounds, finalization, and the
// assembled report. All durable state lives in the Store; the orchestrator
// can resume any non-terminal session from what the store returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kmatsumoto/maturity-interpreter/internal/actionplan"
	"github.com/kmatsumoto/maturity-interpreter/internal/critique"
	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/drafting"
	"github.com/kmatsumoto/maturity-interpreter/internal/llm"
	"github.com/kmatsumoto/maturity-interpreter/internal/questions"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
	"github.com/kmatsumoto/maturity-interpreter/internal/validation"
)

// Limits bounds the clarifying-question loop and collaborator calls
type Limits struct {
	MaxQuestionsTotal    int
	MaxQuestionsPerRound int
	MaxRounds            int
	CallTimeout          time.Duration
}

// DefaultLimits returns the standard question budget
func DefaultLimits() Limits {
	return Limits{
		MaxQuestionsTotal:    5,
		MaxQuestionsPerRound: 3,
		MaxRounds:            2,
		CallTimeout:          60 * time.Second,
	}
}

// DraftGenerator produces narrative drafts. Implemented by *drafting.Generator.
type DraftGenerator interface {
	Generate(ctx context.Context, diag *types.DiagnosticInput, answers []types.AnsweredQuestion, rewriteInstructions []string) (*types.Draft, error)
}

// DraftCritic assesses and finalizes drafts. Implemented by *critique.Critic.
type DraftCritic interface {
	Assess(ctx context.Context, draft *types.Draft, diag *types.DiagnosticInput) (*types.Assessment, error)
	Finalize(ctx context.Context, draft *types.Draft, forbiddenPhrases []string) (*types.FinalReview, error)
}

// ProgressFunc receives lifecycle notifications as a session advances. The
// record passed is the state after the transition; callers must not mutate it.
type ProgressFunc func(stage string, rec *db.SessionRecord)

// StartRequest carries everything needed to start (or restart) a run
type StartRequest struct {
	RunID            uuid.UUID
	Diagnostics      types.DiagnosticInput
	CandidateActions []types.CandidateAction
	PriorityFocus    []string
	Restart          bool
	Progress         ProgressFunc
}

// AnswerSubmission is one user answer to an open question
type AnswerSubmission struct {
	QuestionID uuid.UUID `json:"question_id" validate:"required"`
	Answer     string    `json:"answer" validate:"required"`
	Confidence string    `json:"confidence,omitempty"`
}

// Orchestrator owns the session state machine
type Orchestrator struct {
	store     Store
	generator DraftGenerator
	critic    DraftCritic
	limits    Limits
	forbidden []string

	// Collapses concurrent starts for the same run into one execution.
	starts singleflight.Group
}

// New creates an orchestrator from explicit collaborators
func New(store Store, generator DraftGenerator, critic DraftCritic, limits Limits) *Orchestrator {
	return &Orchestrator{
		store:     store,
		generator: generator,
		critic:    critic,
		limits:    limits,
		forbidden: validation.DefaultForbiddenPhrases,
	}
}

// NewWithClient creates an orchestrator whose collaborators share one LLM client
func NewWithClient(store Store, client llm.Client, limits Limits) *Orchestrator {
	return New(store,
		drafting.NewGenerator(client, limits.CallTimeout),
		critique.NewCritic(client, limits.CallTimeout),
		limits)
}

type driveResult struct {
	rec *db.SessionRecord
	err error
}

// Start begins a run, or resumes it if a session already exists. Repeated
// starts for the same run are idempotent: concurrent calls collapse into one
// execution and later calls observe the existing session. With Restart set,
// a terminal (complete or failed) session is discarded and the run begins
// from scratch; a live session is never discarded, so a restart request
// against one is ignored and the caller observes the existing state.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (*db.SessionRecord, error) {
	if req.RunID == uuid.Nil {
		return nil, &InputError{Cause: fmt.Errorf("run_id is required")}
	}
	if err := req.Diagnostics.Validate(); err != nil {
		return nil, &InputError{Cause: err}
	}

	v, _, _ := o.starts.Do(req.RunID.String(), func() (interface{}, error) {
		if req.Restart {
			prior, err := o.store.GetSessionByRunID(ctx, req.RunID)
			if err != nil {
				return driveResult{err: err}, nil
			}
			if prior != nil {
				if !prior.Status.Terminal() {
					log.Printf("[pipeline] run %s: restart ignored, session %s is live in state %s",
						req.RunID, prior.ID, prior.Status)
					return o.resume(ctx, prior, req.Progress), nil
				}
				if err := o.store.DeleteSession(ctx, req.RunID); err != nil {
					return driveResult{err: fmt.Errorf("failed to clear previous session: %w", err)}, nil
				}
			}
		}

		rec, err := o.store.CreateSession(ctx, req.RunID, req.Diagnostics, req.CandidateActions, req.PriorityFocus)
		if err != nil {
			var exists *db.SessionExistsError
			if errors.As(err, &exists) {
				return o.resume(ctx, exists.Existing, req.Progress), nil
			}
			return driveResult{err: err}, nil
		}

		log.Printf("[pipeline] run %s: session %s created", req.RunID, rec.ID)
		if req.Progress != nil {
			req.Progress(string(types.StatusPending), rec)
		}
		rec, err = o.drive(ctx, rec, req.Progress)
		return driveResult{rec: rec, err: err}, nil
	})

	res := v.(driveResult)
	return res.rec, res.err
}

// resume picks an existing session back up. Terminal and awaiting_user
// sessions are returned as-is; anything mid-flight is driven forward.
func (o *Orchestrator) resume(ctx context.Context, rec *db.SessionRecord, progress ProgressFunc) driveResult {
	if rec.Status.Terminal() || rec.Status == types.StatusAwaitingUser {
		return driveResult{rec: rec}
	}
	log.Printf("[pipeline] run %s: resuming session in state %s", rec.RunID, rec.Status)
	rec, err := o.drive(ctx, rec, progress)
	return driveResult{rec: rec, err: err}
}

// SubmitAnswers records the user's answers for the current round and resumes
// the pipeline. Every open question of the round must be answered in one
// submission; partial submissions are rejected without side effects.
func (o *Orchestrator) SubmitAnswers(ctx context.Context, runID uuid.UUID, subs []AnswerSubmission, progress ProgressFunc) (*db.SessionRecord, error) {
	rec, err := o.store.GetSessionByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &RunNotFoundError{RunID: runID}
	}
	if rec.Status != types.StatusAwaitingUser {
		return nil, &InvalidStateError{Operation: "answer", Status: rec.Status}
	}

	open, err := o.store.ListRoundQuestions(ctx, rec.ID, rec.CurrentRound)
	if err != nil {
		return nil, err
	}

	openSet := make(map[uuid.UUID]bool, len(open))
	for _, q := range open {
		openSet[q.ID] = true
	}
	submitted := make(map[uuid.UUID]bool, len(subs))
	for _, sub := range subs {
		if !openSet[sub.QuestionID] {
			return nil, &UnknownQuestionError{QuestionID: sub.QuestionID}
		}
		submitted[sub.QuestionID] = true
	}
	var missing []uuid.UUID
	for _, q := range open {
		if !submitted[q.ID] {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteAnswersError{Missing: missing}
	}

	now := time.Now().UTC()
	answers := make([]types.Answer, 0, len(subs))
	for _, sub := range subs {
		conf := sub.Confidence
		if conf == "" {
			conf = types.ConfidenceNormal
		}
		answers = append(answers, types.Answer{
			QuestionID: sub.QuestionID,
			SessionID:  rec.ID,
			Answer:     sub.Answer,
			Confidence: conf,
			CreatedAt:  now,
		})
	}

	// Answers land before the state flips so nothing is lost if the claim
	// below loses a race. Inserts are upserts, so a retried submission is
	// harmless.
	if err := o.store.InsertAnswers(ctx, answers); err != nil {
		return nil, err
	}
	if err := o.transition(ctx, rec, types.StatusGenerating, progress); err != nil {
		return nil, err
	}

	log.Printf("[pipeline] run %s: round %d answered (%d answers)", runID, rec.CurrentRound, len(answers))
	return o.drive(ctx, rec, progress)
}

// GetRun returns the current session state for a run
func (o *Orchestrator) GetRun(ctx context.Context, runID uuid.UUID) (*db.SessionRecord, error) {
	rec, err := o.store.GetSessionByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &RunNotFoundError{RunID: runID}
	}
	return rec, nil
}

// ListRuns returns the most recent sessions, newest first
func (o *Orchestrator) ListRuns(ctx context.Context, limit int) ([]*db.SessionRecord, error) {
	return o.store.ListSessions(ctx, limit)
}

// OpenQuestions returns the questions awaiting answers, or nil when the
// session is not waiting on the user.
func (o *Orchestrator) OpenQuestions(ctx context.Context, runID uuid.UUID) ([]types.Question, error) {
	rec, err := o.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if rec.Status != types.StatusAwaitingUser {
		return nil, nil
	}
	return o.store.ListRoundQuestions(ctx, rec.ID, rec.CurrentRound)
}

// Report returns the final report of a completed run
func (o *Orchestrator) Report(ctx context.Context, runID uuid.UUID) (*types.Report, error) {
	rec, err := o.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if rec.Status != types.StatusComplete || rec.Report == nil {
		return nil, &InvalidStateError{Operation: "read the report of", Status: rec.Status}
	}
	return rec.Report, nil
}

// drive advances the session until it blocks on the user or terminates.
// The critic's assessment is held in memory between the generating and
// assessed states; when resuming a session persisted as assessed, the draft
// is re-assessed from stored state.
func (o *Orchestrator) drive(ctx context.Context, rec *db.SessionRecord, progress ProgressFunc) (*db.SessionRecord, error) {
	var assessment *types.Assessment
	finalizeLoops := 0

	for {
		if err := ctx.Err(); err != nil {
			return rec, err
		}

		switch rec.Status {
		case types.StatusPending:
			if err := o.transition(ctx, rec, types.StatusGenerating, progress); err != nil {
				return rec, err
			}

		case types.StatusGenerating:
			answered, err := o.store.ListAnswered(ctx, rec.ID)
			if err != nil {
				return rec, err
			}
			draft, err := o.generator.Generate(ctx, &rec.Diagnostics, answered, rec.RewriteInstructions)
			if err != nil {
				return o.fail(ctx, rec, "draft generation", err, progress)
			}
			rec.Draft = draft

			assessment, err = o.critic.Assess(ctx, draft, &rec.Diagnostics)
			if err != nil {
				return o.fail(ctx, rec, "draft assessment", err, progress)
			}
			if err := o.transition(ctx, rec, types.StatusAssessed, progress); err != nil {
				return rec, err
			}

		case types.StatusAssessed:
			if assessment == nil {
				var err error
				assessment, err = o.critic.Assess(ctx, rec.Draft, &rec.Diagnostics)
				if err != nil {
					return o.fail(ctx, rec, "draft assessment", err, progress)
				}
			}

			instructions := assessment.RewriteInstructions
			if unknown := validation.UnknownCitations(rec.Draft, rec.Diagnostics.EvidenceSet()); len(unknown) > 0 {
				instructions = append(instructions,
					fmt.Sprintf("Remove citations of unknown evidence ids: %v", unknown))
			}

			// A regenerated draft after a finalize loop-back goes straight
			// back to the gate; asking another round would let a user
			// round-trip reset the loop-back bound.
			var asked []types.Question
			if finalizeLoops == 0 {
				ordered := questions.PrioritizeGaps(assessment.Gaps, rec.Draft)
				alloc := questions.Allocator{
					MaxQuestionsTotal:    o.limits.MaxQuestionsTotal,
					MaxQuestionsPerRound: o.limits.MaxQuestionsPerRound,
					MaxRounds:            o.limits.MaxRounds,
				}
				selected := alloc.Allocate(assessment.GeneratedQuestions, ordered, rec.TotalQuestionsAsked, rec.CurrentRound)
				asked = materializeQuestions(selected, rec.ID, rec.CurrentRound+1)
			}

			if len(asked) > 0 {
				if err := o.store.InsertQuestions(ctx, asked); err != nil {
					return rec, err
				}
				prevRound := rec.CurrentRound
				rec.CurrentRound++
				rec.TotalQuestionsAsked += len(asked)
				rec.RewriteInstructions = instructions
				rec.Status = types.StatusAwaitingUser
				if err := o.store.UpdateSession(ctx, rec, types.StatusAssessed, prevRound); err != nil {
					return rec, err
				}
				if progress != nil {
					progress(string(types.StatusAwaitingUser), rec)
				}
				log.Printf("[pipeline] run %s: round %d asks %d questions (%d/%d total)",
					rec.RunID, rec.CurrentRound, len(asked), rec.TotalQuestionsAsked, o.limits.MaxQuestionsTotal)
				return rec, nil
			}

			rec.RewriteInstructions = instructions
			assessment = nil
			if err := o.transition(ctx, rec, types.StatusFinalizing, progress); err != nil {
				return rec, err
			}

		case types.StatusFinalizing:
			review, err := o.critic.Finalize(ctx, rec.Draft, o.forbidden)
			if err != nil {
				return o.fail(ctx, rec, "finalization", err, progress)
			}

			// Forbidden phrases and unknown evidence citations are hard
			// defects regardless of the critic's verdict.
			hardMatches := validation.ForbiddenMatches(rec.Draft, o.forbidden)
			unknown := validation.UnknownCitations(rec.Draft, rec.Diagnostics.EvidenceSet())
			if (!review.Ready || len(hardMatches) > 0 || len(unknown) > 0) && finalizeLoops == 0 {
				finalizeLoops++
				instructions := review.Edits
				if len(hardMatches) > 0 {
					instructions = append(instructions,
						fmt.Sprintf("Remove the forbidden phrases: %v", hardMatches))
				}
				if len(unknown) > 0 {
					instructions = append(instructions,
						fmt.Sprintf("Remove citations of unknown evidence ids: %v", unknown))
				}
				rec.RewriteInstructions = instructions
				log.Printf("[pipeline] run %s: finalize requested a rewrite", rec.RunID)
				if err := o.transition(ctx, rec, types.StatusGenerating, progress); err != nil {
					return rec, err
				}
				continue
			}

			// Second pass is accepted as-is; the loop-back runs at most once.
			rec.Report = o.buildReport(rec)
			rec.RewriteInstructions = nil
			if err := o.transition(ctx, rec, types.StatusComplete, progress); err != nil {
				return rec, err
			}
			log.Printf("[pipeline] run %s: complete", rec.RunID)
			return rec, nil

		case types.StatusAwaitingUser, types.StatusComplete, types.StatusFailed:
			return rec, nil

		default:
			return rec, fmt.Errorf("session %s is in unknown state %q", rec.ID, rec.Status)
		}
	}
}

// buildReport assembles the final deliverable from the accepted draft
func (o *Orchestrator) buildReport(rec *db.SessionRecord) *types.Report {
	allowed := rec.Diagnostics.EvidenceSet()
	report := &types.Report{
		Draft:            *rec.Draft,
		EvidenceManifest: validation.BuildManifest(rec.Draft, allowed),
		GeneratedAt:      time.Now().UTC(),
	}
	if len(rec.CandidateActions) > 0 {
		capacity := actionplan.ResolveCapacity(&rec.Diagnostics)
		plan, err := actionplan.BuildPlan(rec.CandidateActions, capacity, rec.PriorityFocus)
		if err != nil {
			// The narrative still ships; the plan is omitted and the
			// condition is surfaced in the log.
			log.Printf("[pipeline] run %s: action plan skipped: %v", rec.RunID, err)
		} else {
			report.ActionPlan = plan
		}
	}
	return report
}

// materializeQuestions turns kept candidates into persisted questions,
// normalizing mcq option lists and dropping anything structurally invalid.
func materializeQuestions(selected []types.CandidateQuestion, sessionID uuid.UUID, round int) []types.Question {
	now := time.Now().UTC()
	out := make([]types.Question, 0, len(selected))
	for _, c := range selected {
		q := types.Question{
			ID:        uuid.New(),
			SessionID: sessionID,
			GapID:     c.GapID,
			Round:     round,
			Type:      c.Type,
			Text:      c.Text,
			Options:   c.Options,
			Rationale: c.Rationale,
			CreatedAt: now,
		}
		if q.Type == types.QuestionMCQ {
			q.Options = types.NormalizeMCQOptions(q.Options)
		}
		if err := q.Validate(); err != nil {
			log.Printf("[pipeline] dropping malformed question for gap %s: %v", c.GapID, err)
			continue
		}
		out = append(out, q)
		now = now.Add(time.Microsecond) // preserve ask order under created_at sorting
	}
	return out
}

// transition moves the session to the next status with an optimistic guard on
// the state the caller last observed.
func (o *Orchestrator) transition(ctx context.Context, rec *db.SessionRecord, next types.SessionStatus, progress ProgressFunc) error {
	prev := rec.Status
	rec.Status = next
	if err := o.store.UpdateSession(ctx, rec, prev, rec.CurrentRound); err != nil {
		rec.Status = prev
		return err
	}
	if progress != nil {
		progress(string(next), rec)
	}
	return nil
}

// fail marks the session failed and reports the collaborator error. The
// record returned reflects the failed state even if persisting it raced.
func (o *Orchestrator) fail(ctx context.Context, rec *db.SessionRecord, stage string, cause error, progress ProgressFunc) (*db.SessionRecord, error) {
	prev := rec.Status
	rec.Status = types.StatusFailed
	rec.ErrorMessage = cause.Error()
	if err := o.store.UpdateSession(ctx, rec, prev, rec.CurrentRound); err != nil {
		log.Printf("[pipeline] run %s: failed to persist failure: %v", rec.RunID, err)
	}
	if progress != nil {
		progress(string(types.StatusFailed), rec)
	}
	log.Printf("[pipeline] run %s: failed during %s: %v", rec.RunID, stage, cause)
	return rec, &CollaboratorError{Stage: stage, Cause: cause}
}
