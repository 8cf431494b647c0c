package llm

import (
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("test-api-key")
	require.NotNil(t, provider)
	assert.Equal(t, "openai", provider.Name())
	assert.NotNil(t, provider.client)
}

func TestOpenAIProvider_BuildRequestParams(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	tests := []struct {
		name    string
		request *GenerationRequest
		checks  func(t *testing.T, params openai.ChatCompletionNewParams)
	}{
		{
			name: "system and user messages",
			request: &GenerationRequest{
				Model:        "gpt-4o-mini",
				SystemPrompt: "test system prompt",
				Prompt:       "test content",
				Params:       DefaultParams(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.Equal(t, openai.ChatModel("gpt-4o-mini"), params.Model)
				assert.Len(t, params.Messages, 2)
			},
		},
		{
			name: "no system prompt",
			request: &GenerationRequest{
				Model:  "gpt-4o-mini",
				Prompt: "test content",
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.Len(t, params.Messages, 1)
			},
		},
		{
			name: "sampling params and penalties",
			request: &GenerationRequest{
				Model:  "gpt-4o-mini",
				Prompt: "test",
				Params: DefaultParams(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.InDelta(t, 0.9, params.Temperature.Value, 1e-9)
				assert.InDelta(t, 0.95, params.TopP.Value, 1e-9)
				assert.InDelta(t, 0.6, params.PresencePenalty.Value, 1e-9)
				assert.InDelta(t, 0.4, params.FrequencyPenalty.Value, 1e-9)
				assert.Equal(t, int64(1200), params.MaxCompletionTokens.Value)
			},
		},
		{
			name: "request with output schema",
			request: &GenerationRequest{
				Model:        "gpt-4o-mini",
				Prompt:       "test",
				OutputSchema: ChoreographyOutputSchema(),
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				require.NotNil(t, params.ResponseFormat.OfJSONSchema)
				assert.Equal(t, "choreography_segment", params.ResponseFormat.OfJSONSchema.JSONSchema.Name)
			},
		},
		{
			name: "request without output schema",
			request: &GenerationRequest{
				Model:  "gpt-4o-mini",
				Prompt: "test",
			},
			checks: func(t *testing.T, params openai.ChatCompletionNewParams) {
				t.Helper()
				assert.Nil(t, params.ResponseFormat.OfJSONSchema)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checks(t, provider.buildRequestParams(tt.request))
		})
	}
}

func TestOpenAIProvider_ProcessResponse(t *testing.T) {
	provider := NewOpenAIProvider("test-key")

	tests := []struct {
		name    string
		resp    *openai.ChatCompletion
		wantErr bool
		checks  func(t *testing.T, result *GenerationResponse)
	}{
		{
			name: "content and usage",
			resp: &openai.ChatCompletion{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Content: `{"style":"House"}`}, FinishReason: "stop"},
				},
				Usage: openai.CompletionUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
			},
			checks: func(t *testing.T, result *GenerationResponse) {
				t.Helper()
				assert.Equal(t, `{"style":"House"}`, result.RawOutput)
				assert.Equal(t, Usage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140}, result.Usage)
			},
		},
		{
			name:    "no choices",
			resp:    &openai.ChatCompletion{},
			wantErr: true,
		},
		{
			name: "empty content",
			resp: &openai.ChatCompletion{
				Choices: []openai.ChatCompletionChoice{{FinishReason: "length"}},
			},
			wantErr: true,
		},
		{
			name: "refusal",
			resp: &openai.ChatCompletion{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Refusal: "no"}},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := provider.processResponse(tt.resp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.checks(t, result)
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
}
