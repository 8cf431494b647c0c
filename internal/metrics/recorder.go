package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
)

// Recorder receives pipeline metrics
type Recorder interface {
	RecordSegmentOutcome(ctx context.Context, style string, source models.Source)
	RecordOracleCall(ctx context.Context, model string, duration time.Duration, usage llm.Usage, success bool)
	RecordRun(ctx context.Context, style string, segments, fallbacks, repaired int, duration time.Duration)
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
}

// Multi fans every record out to several recorders
type Multi []Recorder

var _ Recorder = Multi(nil)
var _ Recorder = (*SentryMetrics)(nil)
var _ Recorder = (*Client)(nil)

func (m Multi) RecordSegmentOutcome(ctx context.Context, style string, source models.Source) {
	for _, r := range m {
		r.RecordSegmentOutcome(ctx, style, source)
	}
}

func (m Multi) RecordOracleCall(ctx context.Context, model string, duration time.Duration, usage llm.Usage, success bool) {
	for _, r := range m {
		r.RecordOracleCall(ctx, model, duration, usage, success)
	}
}

func (m Multi) RecordRun(ctx context.Context, style string, segments, fallbacks, repaired int, duration time.Duration) {
	for _, r := range m {
		r.RecordRun(ctx, style, segments, fallbacks, repaired, duration)
	}
}

func (m Multi) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	for _, r := range m {
		r.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
}
