package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmatsumoto/maturity-interpreter/internal/actionplan"
	"github.com/kmatsumoto/maturity-interpreter/internal/observability"
)

var planCommand = &cobra.Command{
	Use:   "plan",
	Short: "Build a capacity-bounded action plan without running the pipeline",
	Long: `Reads diagnostic input and candidate actions from JSON files and prints the
action plan the pipeline would attach to its report. No collaborator calls are
made; this is a deterministic, offline computation.`,
	RunE: runPlanCmd,
}

var (
	planDiagnostics  string
	planActions      string
	planFocus        []string
	planCapacityBand string
	planOut          string
)

func init() {
	planCommand.Flags().StringVarP(&planDiagnostics, "diagnostics", "d", "", "Path to diagnostic input JSON file")
	planCommand.Flags().StringVarP(&planActions, "actions", "a", "", "Path to candidate actions JSON file")
	planCommand.Flags().StringSliceVar(&planFocus, "focus", nil, "Priority focus tags that outrank score ordering")
	planCommand.Flags().StringVar(&planCapacityBand, "capacity-band", "", "Stated capacity band: low, medium, or high (inferred if omitted)")
	planCommand.Flags().StringVarP(&planOut, "out", "o", "", "Write the plan JSON to this file instead of stdout")

	_ = planCommand.MarkFlagRequired("diagnostics")
	_ = planCommand.MarkFlagRequired("actions")

	rootCmd.AddCommand(planCommand)
}

func runPlanCmd(_ *cobra.Command, _ []string) error {
	diag, err := loadDiagnostics(planDiagnostics)
	if err != nil {
		return err
	}
	if planCapacityBand != "" {
		diag.CapacityBand = planCapacityBand
	}
	if err := diag.Validate(); err != nil {
		return fmt.Errorf("invalid diagnostic input: %w", err)
	}

	candidates, err := loadCandidateActions(planActions)
	if err != nil {
		return err
	}

	capacity := actionplan.ResolveCapacity(diag)
	plan, err := actionplan.BuildPlan(candidates, capacity, planFocus)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintActionPlan(plan)

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	if planOut != "" {
		if err := os.WriteFile(planOut, out, 0644); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
		fmt.Printf("Plan written to %s\n", planOut)
		return nil
	}
	_, _ = fmt.Fprintln(os.Stdout, string(out))
	return nil
}
