package observability

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/config"
	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client.
// The SDK reads LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY and LANGFUSE_HOST from the environment.
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" || cfg.LangfusePublicKey == "" {
		logger.Info("Langfuse disabled", logger.Fields{
			"enabled":        cfg.LangfuseEnabled,
			"secret_key_set": cfg.LangfuseSecretKey != "",
			"public_key_set": cfg.LangfusePublicKey != "",
		})
		globalClient = Disabled(ctx)
		return globalClient
	}

	globalClient = &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		ctx:     ctx,
	}
	logger.Info("Langfuse initialized", logger.Fields{"host": cfg.LangfuseHost})
	return globalClient
}

// Disabled returns a client whose traces and generations are no-ops
func Disabled(ctx context.Context) *LangfuseClient {
	return &LangfuseClient{enabled: false, ctx: ctx}
}

// GetClient returns the global Langfuse client
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return Disabled(context.Background())
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// StartTrace starts a new trace in Langfuse
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]interface{}) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		logger.Warn("Failed to create Langfuse trace", logger.Fields{"name": name, "error": err.Error()})
		return &Trace{enabled: false, ctx: ctx}
	}

	logger.Debug("Langfuse trace created", logger.Fields{"trace_id": trace.ID, "name": name})
	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace represents a Langfuse trace
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// Enabled reports whether the trace is recording
func (t *Trace) Enabled() bool {
	return t != nil && t.enabled
}

// Generation creates a new generation span within the trace
func (t *Trace) Generation(name string, metadata map[string]interface{}) *Generation {
	if !t.Enabled() {
		return &Generation{enabled: false}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		logger.Warn("Failed to create Langfuse generation", logger.Fields{"name": name, "error": err.Error()})
		return &Generation{enabled: false}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		client:     t.client,
	}
}

// Finish flushes queued events for the trace
func (t *Trace) Finish() {
	if t.Enabled() && t.client != nil {
		t.client.Flush(t.ctx)
		logger.Debug("Langfuse trace flushed", logger.Fields{"trace_id": t.trace.ID})
	}
}

// Generation represents a Langfuse generation span
type Generation struct {
	generation *model.Generation
	enabled    bool
	client     *langfuse.Langfuse
}

// Input sets the input for the generation
func (g *Generation) Input(input interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Input = input
	}
}

// Output sets the output for the generation
func (g *Generation) Output(output interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Output = output
	}
}

// Usage sets the token usage for the generation
func (g *Generation) Usage(usage map[string]interface{}) {
	if g.enabled && g.generation != nil {
		g.generation.Usage = convertUsageMap(usage)
	}
}

// Metadata adds metadata to the generation
func (g *Generation) Metadata(metadata map[string]interface{}) {
	if !g.enabled || g.generation == nil {
		return
	}
	if g.generation.Metadata == nil {
		g.generation.Metadata = make(map[string]interface{})
	}
	if md, ok := g.generation.Metadata.(map[string]interface{}); ok {
		for k, v := range metadata {
			md[k] = v
		}
	} else {
		g.generation.Metadata = metadata
	}
}

// SetLevel sets the level of the generation
func (g *Generation) SetLevel(level string) {
	if g.enabled && g.generation != nil {
		g.generation.Level = model.ObservationLevel(level)
	}
}

// LogCompletion records a finished oracle call: prompt in, raw text out, usage and cost
func (g *Generation) LogCompletion(prompt string, completion llm.Completion, metadata map[string]interface{}) {
	if !g.enabled || g.generation == nil {
		return
	}

	cost := CalculateCost(completion.Model, completion.Usage)
	g.Input(prompt)
	if completion.Text != "" {
		g.Output(completion.Text)
	}
	g.generation.Model = completion.Model
	g.generation.Usage = model.Usage{
		Input:     completion.Usage.InputTokens,
		Output:    completion.Usage.OutputTokens,
		Total:     completion.Usage.TotalTokens,
		Unit:      model.ModelUsageUnitTokens,
		TotalCost: cost,
	}

	merged := map[string]interface{}{
		"provider":    completion.Provider,
		"duration_ms": completion.Duration.Milliseconds(),
		"cost_usd":    cost,
	}
	for k, v := range metadata {
		merged[k] = v
	}
	g.Metadata(merged)
}

// LogFailure records a failed oracle call
func (g *Generation) LogFailure(prompt string, err error, metadata map[string]interface{}) {
	if !g.enabled || g.generation == nil {
		return
	}
	g.Input(prompt)
	g.SetLevel("ERROR")
	g.Metadata(map[string]interface{}{"error": err.Error()})
	g.Metadata(metadata)
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if !g.enabled || g.generation == nil || g.client == nil {
		return
	}
	now := time.Now()
	g.generation.EndTime = &now
	if _, err := g.client.GenerationEnd(g.generation); err != nil {
		logger.Warn("Failed to end Langfuse generation", logger.Fields{"error": err.Error()})
	}
}

// convertUsageMap converts a usage map to model.Usage
func convertUsageMap(usage map[string]interface{}) model.Usage {
	result := model.Usage{
		Unit: model.ModelUsageUnitTokens,
	}

	result.Input = intValue(usage["input_tokens"])
	result.Output = intValue(usage["output_tokens"])
	result.Total = intValue(usage["total_tokens"])

	if cost, ok := usage["cost_usd"].(float64); ok {
		result.TotalCost = cost
	}

	return result
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
