package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

func TestMemoryStoreOnePerRun(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	runID := uuid.New()

	first, err := store.CreateSession(ctx, runID, testDiagnostics(), nil, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = store.CreateSession(ctx, runID, testDiagnostics(), nil, nil)
	var exists *db.SessionExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected SessionExistsError, got %v", err)
	}
	if exists.Existing == nil || exists.Existing.ID != first.ID {
		t.Errorf("existing record not carried on conflict")
	}
}

func TestMemoryStoreOptimisticGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec, err := store.CreateSession(ctx, uuid.New(), testDiagnostics(), nil, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec.Status = types.StatusGenerating
	if err := store.UpdateSession(ctx, rec, types.StatusPending, 0); err != nil {
		t.Fatalf("first update should succeed: %v", err)
	}

	// A writer still holding the pending view must lose.
	stale := *rec
	stale.Status = types.StatusFailed
	err = store.UpdateSession(ctx, &stale, types.StatusPending, 0)
	var staleErr *db.StaleSessionError
	if !errors.As(err, &staleErr) {
		t.Fatalf("expected StaleSessionError, got %v", err)
	}
}

func TestMemoryStoreCascadeDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	runID := uuid.New()

	rec, err := store.CreateSession(ctx, runID, testDiagnostics(), nil, nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	q := types.Question{
		ID:        uuid.New(),
		SessionID: rec.ID,
		GapID:     "gap-a",
		Round:     1,
		Type:      types.QuestionFreeText,
		Text:      "who owns the review process?",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertQuestions(ctx, []types.Question{q}); err != nil {
		t.Fatalf("InsertQuestions failed: %v", err)
	}
	if err := store.InsertAnswers(ctx, []types.Answer{{
		QuestionID: q.ID, SessionID: rec.ID, Answer: "the platform team",
		Confidence: types.ConfidenceNormal, CreatedAt: time.Now().UTC(),
	}}); err != nil {
		t.Fatalf("InsertAnswers failed: %v", err)
	}

	if err := store.DeleteSession(ctx, runID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	got, err := store.GetSessionByRunID(ctx, runID)
	if err != nil || got != nil {
		t.Errorf("session should be gone, got %v (err %v)", got, err)
	}
	qs, _ := store.ListQuestions(ctx, rec.ID)
	if len(qs) != 0 {
		t.Errorf("questions should cascade, got %d", len(qs))
	}
	answered, _ := store.ListAnswered(ctx, rec.ID)
	if len(answered) != 0 {
		t.Errorf("answers should cascade, got %d", len(answered))
	}
}
