package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOracleUnavailable wraps every failure to obtain text from the generation backend
var ErrOracleUnavailable = errors.New("generation oracle unavailable")

const defaultOracleTimeout = 45 * time.Second

// Completion is the raw text of one oracle call plus accounting
type Completion struct {
	Text     string
	Usage    Usage
	Model    string
	Provider string
	Duration time.Duration
}

// Oracle makes single, time-bounded generation calls against a Provider
type Oracle struct {
	provider     Provider
	model        string
	systemPrompt string
	schema       *OutputSchema
	params       GenerationParams
	timeout      time.Duration
}

// OracleOption customizes an Oracle
type OracleOption func(*Oracle)

// WithSystemPrompt sets the system instruction sent with every call
func WithSystemPrompt(prompt string) OracleOption {
	return func(o *Oracle) { o.systemPrompt = prompt }
}

// WithOutputSchema requests structured output
func WithOutputSchema(schema *OutputSchema) OracleOption {
	return func(o *Oracle) { o.schema = schema }
}

// WithParams overrides the sampling params
func WithParams(params GenerationParams) OracleOption {
	return func(o *Oracle) { o.params = params }
}

// WithTimeout bounds each call; non-positive values keep the default
func WithTimeout(timeout time.Duration) OracleOption {
	return func(o *Oracle) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// NewOracle creates an oracle for model on provider
func NewOracle(provider Provider, model string, opts ...OracleOption) *Oracle {
	o := &Oracle{
		provider: provider,
		model:    model,
		params:   DefaultParams(),
		timeout:  defaultOracleTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the configured model name
func (o *Oracle) Model() string {
	return o.model
}

// ProviderName returns the backing provider's name
func (o *Oracle) ProviderName() string {
	return o.provider.Name()
}

// SystemPrompt returns the system instruction sent with every call
func (o *Oracle) SystemPrompt() string {
	return o.systemPrompt
}

// Complete makes one attempt. Every failure, including timeouts and empty output, wraps ErrOracleUnavailable.
func (o *Oracle) Complete(ctx context.Context, prompt string) (Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.provider.Generate(callCtx, &GenerationRequest{
		Model:        o.model,
		SystemPrompt: o.systemPrompt,
		Prompt:       prompt,
		OutputSchema: o.schema,
		Params:       o.params,
	})
	duration := time.Since(start)

	if err != nil {
		if callCtx.Err() != nil && ctx.Err() == nil {
			return Completion{}, fmt.Errorf("%w: %s timed out after %v: %v", ErrOracleUnavailable, o.provider.Name(), o.timeout, err)
		}
		return Completion{}, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, o.provider.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.RawOutput) == "" {
		return Completion{}, fmt.Errorf("%w: %s returned empty output", ErrOracleUnavailable, o.provider.Name())
	}

	return Completion{
		Text:     resp.RawOutput,
		Usage:    resp.Usage,
		Model:    o.model,
		Provider: o.provider.Name(),
		Duration: duration,
	}, nil
}
