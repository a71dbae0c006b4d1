package types

import "fmt"

// Objective is one scored maturity objective from the scoring collaborator
type Objective struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Score              int     `json:"score"` // 0-100
	Importance         float64 `json:"importance"`
	HasCriticalFailure bool    `json:"has_critical_failure"`
}

// CriticalFailure is a diagnostic item that failed outright
type CriticalFailure struct {
	ObjectiveID string `json:"objective_id"`
	Description string `json:"description"`
}

// FailedGate is a diagnostic item whose failure blocks advancement to the
// next maturity level
type FailedGate struct {
	Level       int    `json:"level"`
	ObjectiveID string `json:"objective_id"`
	Description string `json:"description"`
}

// DiagnosticInput is the immutable input to a pipeline run, supplied by the
// scoring collaborator before the first draft is generated
type DiagnosticInput struct {
	Objectives       []Objective       `json:"objectives"`
	CriticalFailures []CriticalFailure `json:"critical_failures"`
	FailedGates      []FailedGate      `json:"failed_gates"`
	CapacityBand     string            `json:"capacity_band,omitempty"` // stated by the caller; empty means infer
}

// Evidence ID prefixes. Every narrative claim must cite an ID from the set
// derived here; anything else is an unknown citation.
const (
	EvidencePrefixObjective = "obj"
	EvidencePrefixCritical  = "crit"
	EvidencePrefixGate      = "gate"
)

// EvidenceID builds the opaque evidence token for a diagnostic fact
func EvidenceID(prefix, id string) string {
	return prefix + ":" + id
}

// EvidenceSet returns the allowed evidence IDs for this run as a lookup set
func (d *DiagnosticInput) EvidenceSet() map[string]bool {
	set := make(map[string]bool)
	for _, obj := range d.Objectives {
		set[EvidenceID(EvidencePrefixObjective, obj.ID)] = true
	}
	for _, cf := range d.CriticalFailures {
		set[EvidenceID(EvidencePrefixCritical, cf.ObjectiveID)] = true
	}
	for _, gate := range d.FailedGates {
		set[fmt.Sprintf("%s:%d:%s", EvidencePrefixGate, gate.Level, gate.ObjectiveID)] = true
	}
	return set
}

// Validate checks structural constraints on the diagnostic input
func (d *DiagnosticInput) Validate() error {
	if len(d.Objectives) == 0 {
		return fmt.Errorf("diagnostic input requires at least one objective")
	}
	seen := make(map[string]bool, len(d.Objectives))
	for i, obj := range d.Objectives {
		if obj.ID == "" {
			return fmt.Errorf("objectives[%d]: id is required", i)
		}
		if seen[obj.ID] {
			return fmt.Errorf("objectives[%d]: duplicate id %q", i, obj.ID)
		}
		seen[obj.ID] = true
		if obj.Score < 0 || obj.Score > 100 {
			return fmt.Errorf("objectives[%d]: score %d out of range 0-100", i, obj.Score)
		}
	}
	return nil
}
