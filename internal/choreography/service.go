package choreography

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRequest is returned when a request carries neither audio nor a timeline
var ErrInvalidRequest = errors.New("invalid choreography request")

// DefaultBatchConcurrency bounds concurrent runs in GenerateBatch
const DefaultBatchConcurrency = 4

// Request is one choreography job. Either Audio or Timeline must be set.
type Request struct {
	Timeline        *audio.BeatTimeline `json:"timeline,omitempty"`
	Features        map[string]float64  `json:"features,omitempty"`
	Audio           []byte              `json:"-"`
	Filename        string              `json:"filename,omitempty"`
	Style           string              `json:"style,omitempty"`
	BeatsPerSegment int                 `json:"beats_per_segment,omitempty"`
	Seed            *uint64             `json:"seed,omitempty"`
}

// BatchItem is the outcome of one request in a batch
type BatchItem struct {
	Index  int                        `json:"index"`
	Result *models.ChoreographyResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// Service resolves a request's audio into a timeline and runs the orchestrator
type Service struct {
	orchestrator     *Orchestrator
	analyzer         audio.Analyzer
	batchConcurrency int
}

// NewService creates a service. analyzer may be nil when only timeline requests are served.
func NewService(orchestrator *Orchestrator, analyzer audio.Analyzer, batchConcurrency int) *Service {
	if batchConcurrency <= 0 {
		batchConcurrency = DefaultBatchConcurrency
	}
	return &Service{
		orchestrator:     orchestrator,
		analyzer:         analyzer,
		batchConcurrency: batchConcurrency,
	}
}

// Generate runs one request to completion
func (s *Service) Generate(ctx context.Context, req Request) (*models.ChoreographyResult, error) {
	return s.GenerateWithObserver(ctx, req, nil)
}

// GenerateWithObserver runs one request, reporting state transitions to observer
func (s *Service) GenerateWithObserver(
	ctx context.Context, req Request, observer Observer,
) (*models.ChoreographyResult, error) {
	in, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	in.Observer = observer
	return s.orchestrator.Run(ctx, in)
}

// GenerateBatch runs independent requests concurrently. A failed request does not stop the others;
// its error is reported in its BatchItem. The returned error is non-nil only when ctx is done.
func (s *Service) GenerateBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			items[i].Index = i
			if err := gctx.Err(); err != nil {
				items[i].Error = err.Error()
				return nil
			}
			result, err := s.Generate(gctx, req)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range items {
		if item.Error != "" {
			failed++
		}
	}
	logger.Info("Choreography batch completed", logger.Fields{
		"requests":    len(reqs),
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if err := ctx.Err(); err != nil {
		return items, fmt.Errorf("choreography batch cancelled: %w", err)
	}
	return items, nil
}

// prepare turns a request into orchestrator input, analyzing audio when no timeline was given
func (s *Service) prepare(ctx context.Context, req Request) (Input, error) {
	in := Input{
		Features:        req.Features,
		Style:           req.Style,
		BeatsPerSegment: req.BeatsPerSegment,
		Seed:            req.Seed,
	}
	if req.BeatsPerSegment < 0 {
		return Input{}, fmt.Errorf("%w: beats_per_segment must be positive, got %d", ErrInvalidRequest, req.BeatsPerSegment)
	}

	switch {
	case req.Timeline != nil:
		in.Timeline = *req.Timeline
	case len(req.Audio) > 0:
		if s.analyzer == nil {
			return Input{}, fmt.Errorf("%w: audio analysis is not configured", ErrInvalidRequest)
		}
		analysis, err := s.analyzer.Analyze(ctx, audio.AnalysisInput{Filename: req.Filename, Data: req.Audio})
		if err != nil {
			return Input{}, fmt.Errorf("failed to analyze audio with %s analyzer: %w", s.analyzer.Name(), err)
		}
		in.Timeline = analysis.Timeline
		in.Envelope = analysis.Envelope
		if len(in.Features) == 0 {
			in.Features = analysis.Features
		}
	default:
		return Input{}, fmt.Errorf("%w: either audio or a timeline is required", ErrInvalidRequest)
	}

	if in.Style == "" {
		in.Style = audio.SuggestStyle(in.Features, in.Timeline.TempoBPM)
		logger.Debug("Style suggested from features", logger.Fields{"style": in.Style})
	}
	return in, nil
}
