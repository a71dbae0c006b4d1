package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"run_id": "550e8400-e29b-41d4-a716-446655440000",
		"max_questions_total": 5,
		"max_rounds": 2,
		"priority_focus": ["security"],
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", cfg.RunID)
	assert.Equal(t, 5, cfg.MaxQuestionsTotal)
	assert.Equal(t, 2, cfg.MaxRounds)
	assert.Equal(t, []string{"security"}, cfg.PriorityFocus)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := &Config{MaxQuestionsTotal: -1}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_questions_total")
}

func TestValidate_CapacityBand(t *testing.T) {
	for _, band := range []string{"", "low", "medium", "high"} {
		cfg := &Config{CapacityBand: band}
		assert.NoError(t, cfg.Validate(), "band %q should be valid", band)
	}

	cfg := &Config{CapacityBand: "enormous"}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "capacity_band")
}

func TestValidate_MissingDiagnosticsFile(t *testing.T) {
	cfg := &Config{Diagnostics: "/nonexistent/diag.json"}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "diagnostics file not found")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{
		RunID:             "from-flags",
		MaxQuestionsTotal: 7,
	}
	defaults := Config{
		RunID:                "from-file",
		MaxQuestionsTotal:    5,
		MaxQuestionsPerRound: 3,
		MaxRounds:            2,
		DatabaseURL:          "postgres://localhost/interp",
		PriorityFocus:        []string{"security"},
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "from-flags", merged.RunID, "explicit values win")
	assert.Equal(t, 7, merged.MaxQuestionsTotal)
	assert.Equal(t, 3, merged.MaxQuestionsPerRound, "unset values fall back")
	assert.Equal(t, 2, merged.MaxRounds)
	assert.Equal(t, "postgres://localhost/interp", merged.DatabaseURL)
	assert.Equal(t, []string{"security"}, merged.PriorityFocus)
}
