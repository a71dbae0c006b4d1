package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	diag := &types.DiagnosticInput{
		Objectives: []types.Objective{
			{ID: "governance", Name: "Governance", Score: 45, HasCriticalFailure: true},
			{ID: "automation", Name: "Automation", Score: 62},
		},
		FailedGates:  []types.FailedGate{{Level: 2, ObjectiveID: "governance"}},
		CapacityBand: "medium",
	}

	p.PrintDiagnostics(diag)
	output := buf.String()

	assert.Contains(t, output, "DIAGNOSTIC INPUT")
	assert.Contains(t, output, "Governance")
	assert.Contains(t, output, "medium")
	assert.Contains(t, output, "Failed gates:      1")
}

func TestPrintDiagnostics_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDiagnostics(nil)

	assert.Empty(t, buf.String())
}

func TestPrintAssessment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAssessment(&types.Assessment{
		OverallQuality: types.QualityYellow,
		Gaps: []types.Gap{
			{GapID: "gap-a", Section: types.SectionRisks, Description: "ownership unclear", Severity: 4},
		},
		GeneratedQuestions: []types.CandidateQuestion{
			{GapID: "gap-a", Type: types.QuestionYesNo, Text: "Is there an owner?"},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "ASSESSMENT")
	assert.Contains(t, output, "yellow")
	assert.Contains(t, output, "S4 risks")
	assert.Contains(t, output, "1 proposed")
}

func TestPrintQuestions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuestions([]types.Question{
		{Type: types.QuestionMCQ, Text: "Which team owns releases?",
			Options: []string{"Platform", "Product", "Other"}},
	})
	output := buf.String()

	assert.Contains(t, output, "CLARIFYING QUESTIONS")
	assert.Contains(t, output, "mcq")
	assert.Contains(t, output, "- Platform")
	assert.Contains(t, output, "- Other")
}

func TestPrintQuestions_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQuestions(nil)

	assert.Empty(t, buf.String())
}

func TestPrintActionPlan(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintActionPlan(&types.ActionPlan{
		Capacity: types.CapacityResult{Band: types.BandLow, Assumed: true},
		Actions: []types.PlannedAction{
			{
				CandidateAction: types.CandidateAction{
					ExpertAction: types.ExpertAction{Title: "Stand up a review board"},
				},
				Timeline:     types.Timeline6M,
				PriorityRank: 1,
				OverCapacity: true,
			},
			{
				CandidateAction: types.CandidateAction{
					ExpertAction: types.ExpertAction{Title: "Automate deployments"},
				},
				Timeline:     types.Timeline12M,
				PriorityRank: 2,
			},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "ACTION PLAN")
	assert.Contains(t, output, "low (assumed)")
	assert.Contains(t, output, "! #1 Stand up a review board")
	assert.Contains(t, output, "12m:")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintReport(&types.Report{
		Draft:            types.Draft{Sections: make([]types.DraftSection, 5)},
		EvidenceManifest: []string{"obj:governance"},
		GeneratedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	})
	output := buf.String()

	assert.Contains(t, output, "REPORT")
	assert.Contains(t, output, "Sections: 5")
	assert.Contains(t, output, "1 items cited")
	assert.Contains(t, output, "2026-03-14")
}

func TestPrintReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintReport(nil)

	assert.Contains(t, buf.String(), "NO REPORT GENERATED")
}
