package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kmatsumoto/maturity-interpreter/internal/config"
	"github.com/kmatsumoto/maturity-interpreter/internal/db"
	"github.com/kmatsumoto/maturity-interpreter/internal/llm"
	"github.com/kmatsumoto/maturity-interpreter/internal/observability"
	"github.com/kmatsumoto/maturity-interpreter/internal/pipeline"
	"github.com/kmatsumoto/maturity-interpreter/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run an interpretation session interactively",
	Long: `Runs the interpretation pipeline against a diagnostic input file, answering
clarifying questions on the terminal as the critic raises them.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runInterpretCmd,
}

var (
	runConfigPath   string
	runDiagnostics  string
	runActions      string
	runID           string
	runMaxQuestions int
	runPerRound     int
	runMaxRounds    int
	runFocus        []string
	runCapacityBand string
	runRestart      bool
	runAPIKey       string
	runVerbose      bool
	runDatabaseURL  string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runDiagnostics, "diagnostics", "d", "", "Path to diagnostic input JSON file")
	runCommand.Flags().StringVarP(&runActions, "actions", "a", "", "Path to candidate actions JSON file (optional)")
	runCommand.Flags().StringVar(&runID, "run-id", "", "Run UUID (optional, generated if not provided)")
	runCommand.Flags().IntVar(&runMaxQuestions, "max-questions", 0, "Total clarifying question budget")
	runCommand.Flags().IntVar(&runPerRound, "per-round", 0, "Maximum questions per round")
	runCommand.Flags().IntVar(&runMaxRounds, "max-rounds", 0, "Maximum question rounds")
	runCommand.Flags().StringSliceVar(&runFocus, "focus", nil, "Priority focus tags for the action plan")
	runCommand.Flags().StringVar(&runCapacityBand, "capacity-band", "", "Stated capacity band: low, medium, or high (inferred if omitted)")
	runCommand.Flags().BoolVar(&runRestart, "restart", false, "Discard any previous session for this run")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for session persistence; in-memory without it
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var; in-memory if unset)")

	rootCmd.AddCommand(runCommand)
}

func runInterpretCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}

		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	if cmd.Flags().Changed("diagnostics") {
		cfg.Diagnostics = runDiagnostics
	}
	if cmd.Flags().Changed("actions") {
		cfg.Actions = runActions
	}
	if cmd.Flags().Changed("run-id") {
		cfg.RunID = runID
	}
	if cmd.Flags().Changed("max-questions") {
		cfg.MaxQuestionsTotal = runMaxQuestions
	}
	if cmd.Flags().Changed("per-round") {
		cfg.MaxQuestionsPerRound = runPerRound
	}
	if cmd.Flags().Changed("max-rounds") {
		cfg.MaxRounds = runMaxRounds
	}
	if cmd.Flags().Changed("focus") {
		cfg.PriorityFocus = runFocus
	}
	if cmd.Flags().Changed("capacity-band") {
		cfg.CapacityBand = runCapacityBand
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	limits := pipeline.DefaultLimits()
	cfg = cfg.MergeWithDefaults(config.Config{
		MaxQuestionsTotal:    limits.MaxQuestionsTotal,
		MaxQuestionsPerRound: limits.MaxQuestionsPerRound,
		MaxRounds:            limits.MaxRounds,
	})
	limits.MaxQuestionsTotal = cfg.MaxQuestionsTotal
	limits.MaxQuestionsPerRound = cfg.MaxQuestionsPerRound
	limits.MaxRounds = cfg.MaxRounds

	// Step 4: Validate required fields
	if cfg.Diagnostics == "" {
		return fmt.Errorf("--diagnostics is required (via flag or config)")
	}

	// Step 5: API key handling
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	// Step 6: Load inputs
	diag, err := loadDiagnostics(cfg.Diagnostics)
	if err != nil {
		return err
	}
	if cfg.CapacityBand != "" {
		diag.CapacityBand = cfg.CapacityBand
	}

	var candidates []types.CandidateAction
	if cfg.Actions != "" {
		candidates, err = loadCandidateActions(cfg.Actions)
		if err != nil {
			return err
		}
	}

	// Step 7: Store: PostgreSQL when a URL is available, in-memory otherwise
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	var store pipeline.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = database
	} else {
		store = pipeline.NewMemoryStore()
	}

	client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	orchestrator := pipeline.NewWithClient(store, client, limits)

	rid := uuid.New()
	if cfg.RunID != "" {
		rid, err = uuid.Parse(cfg.RunID)
		if err != nil {
			return fmt.Errorf("invalid run_id format: %w", err)
		}
	}

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintDiagnostics(diag)
	}

	rec, err := orchestrator.Start(ctx, pipeline.StartRequest{
		RunID:            rid,
		Diagnostics:      *diag,
		CandidateActions: candidates,
		PriorityFocus:    cfg.PriorityFocus,
		Restart:          runRestart,
	})
	if err != nil {
		return err
	}

	// Step 8: Answer rounds until the session terminates
	reader := bufio.NewReader(os.Stdin)
	for rec.Status == types.StatusAwaitingUser {
		questions, err := orchestrator.OpenQuestions(ctx, rid)
		if err != nil {
			return err
		}
		printer.PrintQuestions(questions)

		subs, err := collectAnswers(reader, questions)
		if err != nil {
			return err
		}
		rec, err = orchestrator.SubmitAnswers(ctx, rid, subs, nil)
		if err != nil {
			return err
		}
	}

	if rec.Status == types.StatusFailed {
		return fmt.Errorf("run failed: %s", rec.ErrorMessage)
	}

	// Step 9: Print the report
	report, err := orchestrator.Report(ctx, rid)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		printer.PrintDraft(&report.Draft)
		printer.PrintActionPlan(report.ActionPlan)
	}
	printer.PrintReport(report)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// collectAnswers prompts for each question on the terminal
func collectAnswers(reader *bufio.Reader, questions []types.Question) ([]pipeline.AnswerSubmission, error) {
	subs := make([]pipeline.AnswerSubmission, 0, len(questions))
	for i, q := range questions {
		fmt.Printf("\n%d/%d %s\n", i+1, len(questions), q.Text)
		switch q.Type {
		case types.QuestionYesNo:
			fmt.Print("  (y/n) > ")
		case types.QuestionMCQ:
			for j, opt := range q.Options {
				fmt.Printf("  %d) %s\n", j+1, opt)
			}
			fmt.Print("  choice > ")
		default:
			fmt.Print("  > ")
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read answer: %w", err)
		}
		answer := strings.TrimSpace(line)

		switch q.Type {
		case types.QuestionYesNo:
			if strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes") {
				answer = "yes"
			} else {
				answer = "no"
			}
		case types.QuestionMCQ:
			if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(q.Options) {
				answer = q.Options[n-1]
			}
		}

		subs = append(subs, pipeline.AnswerSubmission{QuestionID: q.ID, Answer: answer})
	}
	return subs, nil
}

func loadDiagnostics(path string) (*types.DiagnosticInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnostics file: %w", err)
	}
	var diag types.DiagnosticInput
	if err := json.Unmarshal(data, &diag); err != nil {
		return nil, fmt.Errorf("failed to parse diagnostics JSON: %w", err)
	}
	return &diag, nil
}

func loadCandidateActions(path string) ([]types.CandidateAction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file: %w", err)
	}
	var actions []types.CandidateAction
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("failed to parse actions JSON: %w", err)
	}
	return actions, nil
}
