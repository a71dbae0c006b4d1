// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Diagnostics string `json:"diagnostics,omitempty"` // Path to diagnostic input JSON
	Actions     string `json:"actions,omitempty"`     // Path to candidate actions JSON

	// Run identity
	RunID string `json:"run_id,omitempty"` // Run UUID (required for server-backed runs)

	// Question budget
	MaxQuestionsTotal    int `json:"max_questions_total,omitempty"`
	MaxQuestionsPerRound int `json:"max_questions_per_round,omitempty"`
	MaxRounds            int `json:"max_rounds,omitempty"`

	// Action plan
	PriorityFocus []string `json:"priority_focus,omitempty"` // Tags that outrank score ordering
	CapacityBand  string   `json:"capacity_band,omitempty"`  // low, medium, or high; empty means infer

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are enforced by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MaxQuestionsTotal < 0 {
		return fmt.Errorf("config error: 'max_questions_total' must be non-negative")
	}
	if c.MaxQuestionsPerRound < 0 {
		return fmt.Errorf("config error: 'max_questions_per_round' must be non-negative")
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("config error: 'max_rounds' must be non-negative")
	}

	switch c.CapacityBand {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("config error: 'capacity_band' must be low, medium, or high")
	}

	if c.Diagnostics != "" {
		if _, err := os.Stat(c.Diagnostics); os.IsNotExist(err) {
			return fmt.Errorf("config error: diagnostics file not found: %s", c.Diagnostics)
		}
	}
	if c.Actions != "" {
		if _, err := os.Stat(c.Actions); os.IsNotExist(err) {
			return fmt.Errorf("config error: actions file not found: %s", c.Actions)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Diagnostics == "" {
		result.Diagnostics = defaults.Diagnostics
	}
	if result.Actions == "" {
		result.Actions = defaults.Actions
	}
	if result.RunID == "" {
		result.RunID = defaults.RunID
	}
	if result.CapacityBand == "" {
		result.CapacityBand = defaults.CapacityBand
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.PriorityFocus) == 0 {
		result.PriorityFocus = defaults.PriorityFocus
	}

	if result.MaxQuestionsTotal == 0 {
		result.MaxQuestionsTotal = defaults.MaxQuestionsTotal
	}
	if result.MaxQuestionsPerRound == 0 {
		result.MaxQuestionsPerRound = defaults.MaxQuestionsPerRound
	}
	if result.MaxRounds == 0 {
		result.MaxRounds = defaults.MaxRounds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
