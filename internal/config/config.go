package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const environmentProduction = "production"

// Config holds the application configuration
// Note: This is a stateless service - no database or auth secrets needed
type Config struct {
	// Environment
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	// LLM API Keys
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"` // OpenAI API key for GPT models
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"` // Google Gemini API key
	OllamaURL    string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`

	// Generation oracle
	Provider         string        `envconfig:"LLM_PROVIDER"` // empty = infer from model name
	Model            string        `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	Temperature      float64       `envconfig:"LLM_TEMPERATURE" default:"0.9"`
	TopP             float64       `envconfig:"LLM_TOP_P" default:"0.95"`
	PresencePenalty  float64       `envconfig:"LLM_PRESENCE_PENALTY" default:"0.6"`
	FrequencyPenalty float64       `envconfig:"LLM_FREQUENCY_PENALTY" default:"0.4"`
	MaxOutputTokens  int           `envconfig:"LLM_MAX_OUTPUT_TOKENS" default:"1200"`
	OracleTimeout    time.Duration `envconfig:"ORACLE_TIMEOUT" default:"45s"`
	MaxAttempts      int           `envconfig:"ORACLE_MAX_ATTEMPTS" default:"2"`
	RetryBackoff     time.Duration `envconfig:"ORACLE_RETRY_BACKOFF" default:"500ms"`

	// Choreography pipeline
	BeatsPerSegment int `envconfig:"BEATS_PER_SEGMENT" default:"8"`
	CandidateCount  int `envconfig:"CANDIDATE_COUNT" default:"15"`
	MovesPerSegment int `envconfig:"FALLBACK_MOVES_PER_SEGMENT" default:"4"`

	// Beat analysis
	// - "wav": built-in WAV decoder and beat tracker
	// - "script": external librosa script via python3
	AnalyzerMode   string `envconfig:"ANALYZER_MODE" default:"wav"`
	AnalyzerScript string `envconfig:"ANALYZER_SCRIPT"` // empty = embedded script
	PythonBinary   string `envconfig:"PYTHON_BIN" default:"python3"`

	// Request limits
	BatchConcurrency int   `envconfig:"BATCH_CONCURRENCY" default:"4"`
	MaxUploadBytes   int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// Observability
	SentryDSN         string `envconfig:"SENTRY_DSN"`          // Sentry DSN for error tracking
	LangfusePublicKey string `envconfig:"LANGFUSE_PUBLIC_KEY"` // Langfuse public key
	LangfuseSecretKey string `envconfig:"LANGFUSE_SECRET_KEY"` // Langfuse secret key
	LangfuseHost      string `envconfig:"LANGFUSE_HOST" default:"https://cloud.langfuse.com"`
	LangfuseEnabled   bool   `envconfig:"LANGFUSE_ENABLED" default:"false"`
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.BeatsPerSegment < 1:
		return fmt.Errorf("BEATS_PER_SEGMENT must be >= 1, got %d", c.BeatsPerSegment)
	case c.CandidateCount < 1:
		return fmt.Errorf("CANDIDATE_COUNT must be >= 1, got %d", c.CandidateCount)
	case c.MovesPerSegment < 1:
		return fmt.Errorf("FALLBACK_MOVES_PER_SEGMENT must be >= 1, got %d", c.MovesPerSegment)
	case c.MaxAttempts < 1:
		return fmt.Errorf("ORACLE_MAX_ATTEMPTS must be >= 1, got %d", c.MaxAttempts)
	case c.OracleTimeout <= 0:
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.OracleTimeout)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 1, got %d", c.BatchConcurrency)
	case c.AnalyzerMode != "wav" && c.AnalyzerMode != "script":
		return fmt.Errorf("ANALYZER_MODE must be wav or script, got %q", c.AnalyzerMode)
	}
	return nil
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == environmentProduction
}
