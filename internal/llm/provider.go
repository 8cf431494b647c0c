package llm

import (
	"context"
)

// Provider defines the interface for text-generation backends.
// Providers should request JSON output when OutputSchema is set; the caller still validates the result.
type Provider interface {
	// Generate sends one prompt and returns the raw model output
	Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)

	// Name returns the provider name (e.g., "openai", "gemini", "ollama")
	Name() string
}

// GenerationRequest contains all parameters needed for generation
type GenerationRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	// Structured output schema, enforced where the backend supports it
	OutputSchema *OutputSchema
	Params       GenerationParams
}

// GenerationParams are the sampling controls sent to the model
type GenerationParams struct {
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxOutputTokens  int
}

// DefaultParams favors varied output over determinism
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:      0.9,
		TopP:             0.95,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.4,
		MaxOutputTokens:  1200,
	}
}

// OutputSchema defines the expected JSON output structure
type OutputSchema struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema object
}

// GenerationResponse contains the result from the LLM
type GenerationResponse struct {
	RawOutput string `json:"-"`
	Usage     Usage  `json:"usage"`
}

// Usage is token accounting for one call
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// AsMap flattens usage for log fields and tracing metadata
func (u Usage) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}
