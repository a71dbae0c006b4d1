package types

// Timeline bucket keys for the action plan, in fill order
const (
	Timeline6M  = "6m"
	Timeline12M = "12m"
	Timeline24M = "24m"
)

// TimelineKeys returns the timeline buckets in fill order
func TimelineKeys() []string {
	return []string{Timeline6M, Timeline12M, Timeline24M}
}

// Capacity band constants
const (
	BandLow    = "low"
	BandMedium = "medium"
	BandHigh   = "high"
)

// ExpertAction is the human-authored remediation attached to a candidate
type ExpertAction struct {
	Title          string `json:"title"`
	Recommendation string `json:"recommendation"`
}

// CandidateAction is one potential remediation item derived from the scoring
// collaborator's output. Read-only input to the capacity planner.
type CandidateAction struct {
	QuestionID     string       `json:"question_id"`
	ObjectiveID    string       `json:"objective_id"`
	ObjectiveScore int          `json:"objective_score"` // 0-100
	IsCritical     bool         `json:"is_critical"`
	IsGateBlocker  bool         `json:"is_gate_blocker"`
	GateLevel      int          `json:"gate_level,omitempty"` // set only when IsGateBlocker
	Tags           []string     `json:"tags,omitempty"`
	ExpertAction   ExpertAction `json:"expert_action"`
}

// CapacityResult sizes the action plan. Caps are cumulative: MaxActions["12m"]
// bounds the 6m and 12m buckets together, and MaxActions["24m"] bounds the
// full plan.
type CapacityResult struct {
	Band       string         `json:"band"`
	Assumed    bool           `json:"assumed"`
	MaxActions map[string]int `json:"max_actions"`
}

// ActionRationale is the mandatory explanation triple on every emitted action
type ActionRationale struct {
	WhySelected     string `json:"why_selected"`
	WhyThisTimeline string `json:"why_this_timeline"`
	ExpectedImpact  string `json:"expected_impact"`
}

// PlannedAction is a candidate that made it into the plan
type PlannedAction struct {
	CandidateAction
	Timeline     string          `json:"timeline"`
	PriorityRank int             `json:"priority_rank"`
	OverCapacity bool            `json:"over_capacity,omitempty"`
	Rationale    ActionRationale `json:"rationale"`
}

// ActionPlan is the bounded, bucketed output of the capacity planner
type ActionPlan struct {
	Capacity CapacityResult  `json:"capacity"`
	Actions  []PlannedAction `json:"actions"`
}

// Bucket returns the planned actions assigned to a timeline, in rank order
func (p *ActionPlan) Bucket(timeline string) []PlannedAction {
	var out []PlannedAction
	for _, action := range p.Actions {
		if action.Timeline == timeline {
			out = append(out, action)
		}
	}
	return out
}
