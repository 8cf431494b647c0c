package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics records pipeline metrics as Sentry spans and transaction tags
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))
	span.SetData("duration_ms", duration.Milliseconds())

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordSegmentOutcome records which path produced a segment
func (m *SentryMetrics) RecordSegmentOutcome(ctx context.Context, style string, source models.Source) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "choreography.segment_outcome")
	defer span.Finish()

	span.SetTag("style", style)
	span.SetTag("source", string(source))
	span.SetData("source", string(source))

	if source == models.SourceFallback {
		span.Status = sentry.SpanStatusAborted
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Description = fmt.Sprintf("Segment: %s", source)
}

// RecordOracleCall records duration and token usage of one oracle attempt
func (m *SentryMetrics) RecordOracleCall(
	ctx context.Context, model string, duration time.Duration, usage llm.Usage, success bool,
) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil && success {
		transaction.SetTag("llm.model", model)
		transaction.SetData("llm.total_tokens", usage.TotalTokens)
		transaction.SetData("llm.input_tokens", usage.InputTokens)
		transaction.SetData("llm.output_tokens", usage.OutputTokens)
	}

	span := sentry.StartSpan(ctx, "llm.oracle_call")
	defer span.Finish()

	span.SetTag("model", model)
	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("total_tokens", usage.TotalTokens)
	span.SetData("input_tokens", usage.InputTokens)
	span.SetData("output_tokens", usage.OutputTokens)

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}
	span.Description = fmt.Sprintf("Oracle Call: %s", model)
}

// RecordRun records a completed orchestration run
func (m *SentryMetrics) RecordRun(
	ctx context.Context, style string, segments, fallbacks, repaired int, duration time.Duration,
) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "choreography.run")
	defer span.Finish()

	span.SetTag("style", style)
	span.SetTag("degraded", fmt.Sprintf("%t", fallbacks > 0))
	span.SetData("segments", segments)
	span.SetData("fallbacks", fallbacks)
	span.SetData("repaired", repaired)
	span.SetData("duration_ms", duration.Milliseconds())

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Choreography Run: %s", style)
}
