package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	// Provider name
	providerNameOpenAI = "openai"

	// Logging limits
	maxPreviewChars = 200
)

// OpenAIProvider implements the Provider interface using OpenAI's Chat Completions API,
// which accepts presence and frequency penalties.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate sends the prompt as a single chat completion
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()
	logger.Debug("OpenAI generation request started", logger.Fields{"model": request.Model})

	// Start Sentry transaction
	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()

	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := p.buildRequestParams(request)

	// Call OpenAI API with Sentry span
	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Chat.Completions.New(ctx, params)
	apiDuration := time.Since(startTime)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai request failed after %v: %w", apiDuration, err)
	}

	result, err := p.processResponse(resp)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, err
	}

	transaction.SetTag("success", "true")
	logger.Debug("OpenAI generation completed", logger.Fields{
		"model":         request.Model,
		"duration_ms":   apiDuration.Milliseconds(),
		"output_length": len(result.RawOutput),
		"output":        truncateString(result.RawOutput, maxPreviewChars),
	})
	return result, nil
}

// buildRequestParams converts GenerationRequest to OpenAI chat completion params
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:            openai.ChatModel(request.Model),
		Messages:         messages,
		Temperature:      openai.Float(request.Params.Temperature),
		TopP:             openai.Float(request.Params.TopP),
		PresencePenalty:  openai.Float(request.Params.PresencePenalty),
		FrequencyPenalty: openai.Float(request.Params.FrequencyPenalty),
	}
	if request.Params.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.Params.MaxOutputTokens))
	}

	if request.OutputSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        request.OutputSchema.Name,
					Description: openai.String(request.OutputSchema.Description),
					Schema:      request.OutputSchema.Schema,
					// Output is validated downstream
					Strict: openai.Bool(false),
				},
			},
		}
	}

	return params
}

func (p *OpenAIProvider) processResponse(resp *openai.ChatCompletion) (*GenerationResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response did not include any choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("openai refused the request: %s", truncateString(choice.Message.Refusal, maxPreviewChars))
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("openai response did not include any output text (finish_reason=%s)", choice.FinishReason)
	}

	return &GenerationResponse{
		RawOutput: choice.Message.Content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// truncateString truncates a string to a maximum length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
