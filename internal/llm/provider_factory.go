package llm

import (
	"context"
	"fmt"
	"strings"
)

// ollamaModelPrefixes are model families served locally rather than by a hosted API
var ollamaModelPrefixes = []string{"llama", "mistral", "mixtral", "qwen", "phi", "gemma", "deepseek"}

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
	ollamaURL    string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(openaiAPIKey, geminiAPIKey, ollamaURL string) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
		ollamaURL:    ollamaURL,
	}
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName != "" {
		return f.getProviderByName(ctx, providerName)
	}

	// Otherwise, infer from model name
	return f.getProviderByName(ctx, InferProviderName(model))
}

// InferProviderName guesses the provider from a model name, defaulting to openai
func InferProviderName(model string) string {
	modelLower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(modelLower, "gemini-"):
		return providerNameGemini
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o1"),
		strings.HasPrefix(modelLower, "o3"), strings.HasPrefix(modelLower, "o4"):
		return providerNameOpenAI
	}
	for _, prefix := range ollamaModelPrefixes {
		if strings.HasPrefix(modelLower, prefix) {
			return providerNameOllama
		}
	}
	return providerNameOpenAI
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case providerNameOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(f.openaiAPIKey), nil

	case providerNameGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, f.geminiAPIKey)

	case providerNameOllama:
		if f.ollamaURL == "" {
			return nil, fmt.Errorf("ollama URL not configured")
		}
		return NewOllamaProvider(f.ollamaURL), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, gemini, ollama)", providerName)
	}
}
