package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/getsentry/sentry-go"
)

const (
	providerNameOllama = "ollama"
	ollamaFormatJSON   = "json"
	// first call may load the model into memory
	ollamaHTTPTimeout = 120 * time.Second
	// repeat_penalty is multiplicative; 1.0 disables it
	ollamaBaseRepeatPenalty = 1.0
)

// OllamaProvider implements the Provider interface against a local Ollama server
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOllamaProvider creates an Ollama provider for the given base URL
func NewOllamaProvider(baseURL string) *OllamaProvider {
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: ollamaHTTPTimeout},
	}
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return providerNameOllama
}

// ollamaGenerateRequest is the /api/generate request body
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  any            `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaGenerateResponse is the /api/generate response body
type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate sends a non-streaming generate request
func (p *OllamaProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	transaction := sentry.StartTransaction(ctx, "ollama.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOllama)

	jsonBody, err := json.Marshal(p.buildRequestBody(request))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	span := transaction.StartChild("ollama.api_call")
	apiStartTime := time.Now()
	resp, err := p.httpClient.Do(req)
	span.Finish()
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close ollama response body", logger.Fields{"error": closeErr.Error()})
		}
	}()

	if resp.StatusCode != http.StatusOK {
		transaction.SetTag("success", "false")
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, truncateString(string(bodyBytes), maxPreviewChars))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	output := strings.TrimSpace(result.Response)
	if output == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("ollama response did not include any output text")
	}

	transaction.SetTag("success", "true")
	logger.Debug("Ollama generation completed", logger.Fields{
		"model":       request.Model,
		"duration_ms": time.Since(apiStartTime).Milliseconds(),
	})

	return &GenerationResponse{
		RawOutput: output,
		Usage: Usage{
			InputTokens:  result.PromptEvalCount,
			OutputTokens: result.EvalCount,
			TotalTokens:  result.PromptEvalCount + result.EvalCount,
		},
	}, nil
}

func (p *OllamaProvider) buildRequestBody(request *GenerationRequest) ollamaGenerateRequest {
	params := request.Params
	body := ollamaGenerateRequest{
		Model:  request.Model,
		Prompt: request.Prompt,
		System: request.SystemPrompt,
		Stream: false,
		Format: ollamaFormatJSON,
		Options: map[string]any{
			"temperature":       params.Temperature,
			"top_p":             params.TopP,
			"presence_penalty":  params.PresencePenalty,
			"frequency_penalty": params.FrequencyPenalty,
			"repeat_penalty":    ollamaBaseRepeatPenalty + params.FrequencyPenalty/4,
		},
	}
	if params.MaxOutputTokens > 0 {
		body.Options["num_predict"] = params.MaxOutputTokens
	}
	if request.OutputSchema != nil {
		body.Format = request.OutputSchema.Schema
	}
	return body
}
