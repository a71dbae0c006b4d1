// Package actionplan turns candidate remediation actions into a bounded,
// bucketed action plan sized to the team's capacity band.
package actionplan

import (
	"fmt"

	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

// Default cumulative caps per capacity band. The 12m value bounds the 6m and
// 12m buckets together; the 24m value bounds the whole plan.
var defaultCaps = map[string]map[string]int{
	types.BandLow:    {types.Timeline6M: 2, types.Timeline12M: 4, types.Timeline24M: 6},
	types.BandMedium: {types.Timeline6M: 3, types.Timeline12M: 6, types.Timeline24M: 9},
	types.BandHigh:   {types.Timeline6M: 5, types.Timeline12M: 9, types.Timeline24M: 14},
}

// ResolveCapacity produces the capacity result for a run. A band stated by
// the caller is taken as-is; otherwise one is inferred from the diagnostic
// picture and flagged as assumed.
func ResolveCapacity(diag *types.DiagnosticInput) types.CapacityResult {
	band := diag.CapacityBand
	assumed := false

	if _, known := defaultCaps[band]; !known {
		band = inferBand(diag)
		assumed = true
	}

	caps := defaultCaps[band]
	return types.CapacityResult{
		Band:    band,
		Assumed: assumed,
		MaxActions: map[string]int{
			types.Timeline6M:  caps[types.Timeline6M],
			types.Timeline12M: caps[types.Timeline12M],
			types.Timeline24M: caps[types.Timeline24M],
		},
	}
}

// inferBand guesses a capacity band when none was stated. A team drowning in
// critical failures or scoring poorly overall gets the smallest plan.
func inferBand(diag *types.DiagnosticInput) string {
	if len(diag.Objectives) == 0 {
		return types.BandLow
	}

	total := 0
	for _, obj := range diag.Objectives {
		total += obj.Score
	}
	avg := total / len(diag.Objectives)

	switch {
	case len(diag.CriticalFailures) >= 3 || avg < 40:
		return types.BandLow
	case len(diag.CriticalFailures) == 0 && avg >= 70:
		return types.BandHigh
	default:
		return types.BandMedium
	}
}

// ValidateCapacity checks that caps are present and cumulative-monotonic
func ValidateCapacity(c types.CapacityResult) error {
	c6, ok6 := c.MaxActions[types.Timeline6M]
	c12, ok12 := c.MaxActions[types.Timeline12M]
	c24, ok24 := c.MaxActions[types.Timeline24M]
	if !ok6 || !ok12 || !ok24 {
		return fmt.Errorf("capacity result must cap all of %v", types.TimelineKeys())
	}
	if c6 < 0 || c12 < c6 || c24 < c12 {
		return fmt.Errorf("capacity caps must be cumulative: 6m=%d <= 12m=%d <= 24m=%d", c6, c12, c24)
	}
	return nil
}
