package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8, cfg.BeatsPerSegment)
	assert.Equal(t, 15, cfg.CandidateCount)
	assert.Equal(t, 4, cfg.MovesPerSegment)
	assert.InDelta(t, 0.9, cfg.Temperature, 1e-9)
	assert.InDelta(t, 0.6, cfg.PresencePenalty, 1e-9)
	assert.InDelta(t, 0.4, cfg.FrequencyPenalty, 1e-9)
	assert.Equal(t, 1200, cfg.MaxOutputTokens)
	assert.Equal(t, 45*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "wav", cfg.AnalyzerMode)
	assert.False(t, cfg.LangfuseEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("BEATS_PER_SEGMENT", "16")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("ORACLE_TIMEOUT", "10s")
	t.Setenv("LANGFUSE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 16, cfg.BeatsPerSegment)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 10*time.Second, cfg.OracleTimeout)
	assert.True(t, cfg.LangfuseEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero beats per segment", key: "BEATS_PER_SEGMENT", value: "0"},
		{name: "zero attempts", key: "ORACLE_MAX_ATTEMPTS", value: "0"},
		{name: "unknown analyzer", key: "ANALYZER_MODE", value: "madmom"},
		{name: "not a number", key: "CANDIDATE_COUNT", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
