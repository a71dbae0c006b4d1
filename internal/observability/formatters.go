// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDiagnostics outputs a human-readable summary of the diagnostic input.
func (p *Printer) PrintDiagnostics(diag *types.DiagnosticInput) {
	if diag == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Objectives:        %d\n", len(diag.Objectives)))
	sb.WriteString(fmt.Sprintf("Critical failures: %d\n", len(diag.CriticalFailures)))
	sb.WriteString(fmt.Sprintf("Failed gates:      %d\n", len(diag.FailedGates)))
	if diag.CapacityBand != "" {
		sb.WriteString(fmt.Sprintf("Capacity band:     %s\n", diag.CapacityBand))
	}
	sb.WriteString("\n")

	count := min(len(diag.Objectives), maxItemsToShow)
	for i := 0; i < count; i++ {
		obj := diag.Objectives[i]
		marker := " "
		if obj.HasCriticalFailure {
			marker = "!"
		}
		sb.WriteString(fmt.Sprintf("%s %-24s %3d\n", marker, obj.Name, obj.Score))
	}
	if len(diag.Objectives) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(diag.Objectives)-maxItemsToShow))
	}

	p.printBox("DIAGNOSTIC INPUT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDraft outputs the draft sections with their citation counts.
func (p *Printer) PrintDraft(draft *types.Draft) {
	if draft == nil || len(draft.Sections) == 0 {
		return
	}

	var sb strings.Builder
	for i, section := range draft.Sections {
		body := section.Body
		if len(body) > 50 {
			body = body[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s (%d citations)\n", section.Key, len(section.EvidenceIDs)))
		sb.WriteString(fmt.Sprintf("  %s\n", body))
		if i < len(draft.Sections)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("DRAFT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAssessment outputs the critic's verdict with its top gaps.
func (p *Printer) PrintAssessment(assessment *types.Assessment) {
	if assessment == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Quality:   %s\n", assessment.OverallQuality))
	sb.WriteString(fmt.Sprintf("Gaps:      %d\n", len(assessment.Gaps)))
	sb.WriteString(fmt.Sprintf("Questions: %d proposed\n", len(assessment.GeneratedQuestions)))

	if len(assessment.Gaps) > 0 {
		sb.WriteString("\n")
		count := min(len(assessment.Gaps), maxItemsToShow)
		for i := 0; i < count; i++ {
			gap := assessment.Gaps[i]
			desc := gap.Description
			if len(desc) > 42 {
				desc = desc[:39] + "..."
			}
			sb.WriteString(fmt.Sprintf("S%d %s: %s\n", gap.Severity, gap.Section, desc))
		}
		if len(assessment.Gaps) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(assessment.Gaps)-maxItemsToShow))
		}
	}

	p.printBox("ASSESSMENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQuestions outputs the questions asked in the current round.
func (p *Printer) PrintQuestions(questions []types.Question) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	for i, q := range questions {
		text := q.Text
		if len(text) > 48 {
			text = text[:45] + "..."
		}
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, q.Type, text))
		for _, opt := range q.Options {
			sb.WriteString(fmt.Sprintf("   - %s\n", opt))
		}
	}

	p.printBox("CLARIFYING QUESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintActionPlan outputs the plan grouped by timeline bucket.
func (p *Printer) PrintActionPlan(plan *types.ActionPlan) {
	if plan == nil || len(plan.Actions) == 0 {
		return
	}

	var sb strings.Builder
	band := plan.Capacity.Band
	if plan.Capacity.Assumed {
		band += " (assumed)"
	}
	sb.WriteString(fmt.Sprintf("Capacity: %s\n", band))

	for _, timeline := range types.TimelineKeys() {
		bucket := plan.Bucket(timeline)
		if len(bucket) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n%s:\n", timeline))
		for _, action := range bucket {
			title := action.ExpertAction.Title
			if len(title) > 44 {
				title = title[:41] + "..."
			}
			marker := " "
			if action.OverCapacity {
				marker = "!"
			}
			sb.WriteString(fmt.Sprintf("%s #%d %s\n", marker, action.PriorityRank, title))
		}
	}

	p.printBox("ACTION PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs a summary of the completed report.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(report *types.Report) {
	if report == nil {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO REPORT GENERATED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Sections: %d\n", len(report.Draft.Sections)))
	sb.WriteString(fmt.Sprintf("Evidence: %d items cited\n", len(report.EvidenceManifest)))
	if report.ActionPlan != nil {
		sb.WriteString(fmt.Sprintf("Actions:  %d planned\n", len(report.ActionPlan.Actions)))
	}
	sb.WriteString(fmt.Sprintf("At:       %s", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	p.printBox("REPORT", sb.String())
}
