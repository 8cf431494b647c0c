package choreography

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/observability"
	"github.com/Conceptual-Machines/choreo-api/internal/prompt"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

// State is a step of the orchestration state machine
type State string

const (
	StateSegmenting     State = "SEGMENTING"
	StatePrompting      State = "PROMPTING"
	StateAwaitingOracle State = "AWAITING_ORACLE"
	StateValidating     State = "VALIDATING"
	StateAccepted       State = "ACCEPTED"
	StateFallback       State = "FALLBACK"
	StatePostprocessing State = "POSTPROCESSING"
	StateAssembled      State = "ASSEMBLED"
	StateFailed         State = "FAILED"
)

// Defaults for Settings fields left at zero
const (
	DefaultBeatsPerSegment = 8
	DefaultCandidateCount  = 15
	DefaultMaxAttempts     = 2
	DefaultRetryBackoff    = 500 * time.Millisecond
)

// runLevel marks events that are not about one segment
const runLevel = -1

// Event is one state transition, reported to an Observer
type Event struct {
	RunID   string `json:"run_id"`
	State   State  `json:"state"`
	Segment int    `json:"segment"`
	Attempt int    `json:"attempt,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// Observer receives state transitions while a run is in progress. It is called synchronously.
type Observer func(Event)

// Completer is the text-generation oracle as seen by the orchestrator
type Completer interface {
	Complete(ctx context.Context, prompt string) (llm.Completion, error)
	Model() string
}

// Recorder receives run metrics
type Recorder interface {
	RecordSegmentOutcome(ctx context.Context, style string, source models.Source)
	RecordOracleCall(ctx context.Context, model string, duration time.Duration, usage llm.Usage, success bool)
	RecordRun(ctx context.Context, style string, segments, fallbacks, repaired int, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordSegmentOutcome(context.Context, string, models.Source) {}
func (noopRecorder) RecordOracleCall(context.Context, string, time.Duration, llm.Usage, bool) {}
func (noopRecorder) RecordRun(context.Context, string, int, int, int, time.Duration) {}

// Settings tune one orchestrator. Zero fields take the package defaults; a negative RetryBackoff disables the wait.
type Settings struct {
	BeatsPerSegment int
	CandidateCount  int
	MovesPerSegment int
	MaxAttempts     int
	RetryBackoff    time.Duration
	WindowCapacity  int
}

func (s Settings) withDefaults() Settings {
	if s.BeatsPerSegment <= 0 {
		s.BeatsPerSegment = DefaultBeatsPerSegment
	}
	if s.CandidateCount <= 0 {
		s.CandidateCount = DefaultCandidateCount
	}
	if s.MovesPerSegment <= 0 {
		s.MovesPerSegment = DefaultMovesPerSegment
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	switch {
	case s.RetryBackoff == 0:
		s.RetryBackoff = DefaultRetryBackoff
	case s.RetryBackoff < 0:
		s.RetryBackoff = 0
	}
	if s.WindowCapacity <= 0 {
		s.WindowCapacity = DefaultWindowCapacity
	}
	return s
}

// Input is one choreography run
type Input struct {
	Timeline audio.BeatTimeline
	Features map[string]float64
	// Envelope is optional; when present each prompt carries the segment's own energy
	Envelope *audio.Envelope
	Style    string
	// BeatsPerSegment overrides Settings.BeatsPerSegment when positive
	BeatsPerSegment int
	// Seed makes the run reproducible given the same oracle responses
	Seed     *uint64
	Observer Observer
}

// Orchestrator turns a beat timeline into a choreography, one segment at a time
type Orchestrator struct {
	vocab    *vocabulary.Table
	oracle   Completer
	fallback *Fallback
	post     *PostProcessor
	settings Settings
	recorder Recorder
	tracer   *observability.LangfuseClient
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRecorder sends run metrics to r
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTracer records each oracle attempt as a Langfuse generation
func WithTracer(t *observability.LangfuseClient) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// NewOrchestrator creates an orchestrator. A nil oracle sends every segment to fallback.
func NewOrchestrator(vocab *vocabulary.Table, oracle Completer, settings Settings, opts ...Option) *Orchestrator {
	settings = settings.withDefaults()
	o := &Orchestrator{
		vocab:    vocab,
		oracle:   oracle,
		fallback: NewFallback(vocab, settings.MovesPerSegment),
		post:     NewPostProcessor(vocab),
		settings: settings,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Settings returns the effective settings
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// run is the mutable state of one Run call
type run struct {
	id       string
	style    string
	in       Input
	rng      *rand.Rand
	builder  *prompt.Builder
	window   RecentWindow
	trace    *observability.Trace
	total    int
	observer Observer
}

func (r *run) emit(state State, segment, attempt int, message string) {
	if r.observer == nil {
		return
	}
	r.observer(Event{
		RunID:   r.id,
		State:   state,
		Segment: segment,
		Attempt: attempt,
		Total:   r.total,
		Message: message,
	})
}

// Run segments the timeline and produces one choreography segment per beat segment, in order.
//
// Oracle and validation failures never fail the run: each segment is retried up to MaxAttempts
// times and then synthesized locally. Only a malformed timeline or cancellation returns an error.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*models.ChoreographyResult, error) {
	start := time.Now()

	style, known := o.vocab.ResolveStyle(in.Style)
	r := &run{
		id:       uuid.NewString(),
		style:    style,
		in:       in,
		rng:      newRand(in.Seed),
		window:   NewRecentWindow(o.settings.WindowCapacity),
		observer: in.Observer,
	}
	if in.Style != "" && !known {
		logger.Warn("Unknown style, using default", logger.Fields{"run_id": r.id, "style": in.Style, "resolved": style})
	}

	span := sentry.StartSpan(ctx, "choreography.run")
	span.Description = fmt.Sprintf("Choreography run: %s", style)
	span.SetTag("style", style)
	defer span.Finish()
	ctx = span.Context()

	beatsPerSegment := in.BeatsPerSegment
	if beatsPerSegment <= 0 {
		beatsPerSegment = o.settings.BeatsPerSegment
	}

	r.emit(StateSegmenting, runLevel, 0, "")
	segments, err := in.Timeline.Segment(beatsPerSegment)
	if err != nil {
		span.Status = sentry.SpanStatusInvalidArgument
		r.emit(StateFailed, runLevel, 0, err.Error())
		return nil, fmt.Errorf("failed to segment timeline: %w", err)
	}
	r.total = len(segments)

	r.builder, err = prompt.NewPromptBuilder(r.rng)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		r.emit(StateFailed, runLevel, 0, err.Error())
		return nil, err
	}

	r.trace = o.tracer.StartTrace(ctx, "choreography", map[string]interface{}{
		"run_id":            r.id,
		"style":             style,
		"segments":          len(segments),
		"beats_per_segment": beatsPerSegment,
	})
	defer r.trace.Finish()

	logger.Info("Choreography run started", logger.Fields{
		"run_id":            r.id,
		"style":             style,
		"segments":          len(segments),
		"beats_per_segment": beatsPerSegment,
		"tempo_bpm":         in.Timeline.TempoBPM,
	})

	result := &models.ChoreographyResult{
		Style:         style,
		Segments:      make([]models.ChoreographySegment, 0, len(segments)),
		LowConfidence: in.Timeline.LowConfidence(),
	}
	var cues *models.GlobalCues

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			span.Status = sentry.SpanStatusCanceled
			return nil, fmt.Errorf("choreography run cancelled: %w", err)
		}

		out, accepted, err := o.runSegment(ctx, r, seg)
		if err != nil {
			span.Status = sentry.SpanStatusCanceled
			return nil, err
		}
		if accepted != nil && cues == nil {
			cues = &accepted.GlobalCues
		}

		r.emit(StatePostprocessing, seg.Index, 0, "")
		out, r.window = o.post.PostProcess(out, r.window, r.rng)
		out = Enrich(out, seg.BeatCount)

		result.Segments = append(result.Segments, out)
		o.recorder.RecordSegmentOutcome(ctx, style, out.Provenance.Source)
	}

	if cues != nil {
		result.GlobalCues = *cues
	} else {
		result.GlobalCues = o.fallback.DeriveCues(style, in.Features)
	}

	counts := result.CountBySource()
	duration := time.Since(start)
	o.recorder.RecordRun(ctx, style, len(result.Segments), counts[models.SourceFallback], counts[models.SourceRepaired], duration)

	span.SetData("fallbacks", counts[models.SourceFallback])
	span.SetData("repaired", counts[models.SourceRepaired])
	span.Status = sentry.SpanStatusOK

	logger.Info("Choreography run assembled", logger.Fields{
		"run_id":      r.id,
		"segments":    len(result.Segments),
		"oracle":      counts[models.SourceOracle],
		"repaired":    counts[models.SourceRepaired],
		"fallbacks":   counts[models.SourceFallback],
		"duration_ms": duration.Milliseconds(),
	})
	r.emit(StateAssembled, runLevel, 0, "")
	return result, nil
}

// runSegment produces one segment. It returns the accepted oracle result when the oracle path won,
// and an error only when ctx is done.
func (o *Orchestrator) runSegment(
	ctx context.Context, r *run, seg audio.Segment,
) (models.ChoreographySegment, *models.ChoreographyResult, error) {
	span := sentry.StartSpan(ctx, "choreography.segment")
	span.Description = fmt.Sprintf("Segment %d", seg.Index)
	defer span.Finish()
	ctx = span.Context()

	avoid := r.window.AvoidSet()
	pool := o.vocab.Sample(r.style, o.settings.CandidateCount, avoid, r.rng)
	if pool.Widened {
		logger.Debug("Candidate pool widened beyond style", logger.Fields{"run_id": r.id, "segment": seg.Index})
	}

	attempts := 0
	if o.oracle != nil {
		r.emit(StatePrompting, seg.Index, 0, "")
		text := r.builder.Build(o.promptRequest(r, seg, pool))

		for attempt := 1; attempt <= o.settings.MaxAttempts; attempt++ {
			if attempt > 1 {
				if err := sleepContext(ctx, o.settings.RetryBackoff*time.Duration(attempt-1)); err != nil {
					return models.ChoreographySegment{}, nil, fmt.Errorf("choreography run cancelled: %w", err)
				}
			}
			attempts = attempt

			candidate, parsed, err := o.attempt(ctx, r, seg, text, attempt)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return models.ChoreographySegment{}, nil, fmt.Errorf("choreography run cancelled: %w", ctxErr)
				}
				logger.Warn("Segment attempt rejected", logger.Fields{
					"run_id":  r.id,
					"segment": seg.Index,
					"attempt": attempt,
					"error":   err.Error(),
				})
				continue
			}

			repaired, outcome := RepairMoves(candidate, pool, avoid, prompt.DefaultMinMoves, r.rng)
			if outcome == RepairEmpty {
				logger.Warn("Oracle moves all outside candidate pool", logger.Fields{
					"run_id":  r.id,
					"segment": seg.Index,
					"moves":   candidate.Moves,
				})
				r.emit(StateValidating, seg.Index, attempt, "no usable moves")
				break
			}

			source := models.SourceOracle
			if outcome == RepairApplied {
				source = models.SourceRepaired
			}
			repaired.Provenance = &models.Provenance{Source: source, PoolWidened: pool.Widened, Attempts: attempt}
			span.SetTag("source", string(source))
			r.emit(StateAccepted, seg.Index, attempt, string(source))
			return repaired, parsed, nil
		}
	}

	r.emit(StateFallback, seg.Index, attempts, "")
	out := o.fallback.SynthesizeSegment(seg, r.style, pool.Actions, r.rng)
	out.Provenance = &models.Provenance{Source: models.SourceFallback, PoolWidened: pool.Widened, Attempts: attempts}
	span.SetTag("source", string(models.SourceFallback))
	return out, nil, nil
}

// attempt makes one oracle call and validates the response. The returned segment has the
// requested index and time label regardless of what the oracle wrote.
func (o *Orchestrator) attempt(
	ctx context.Context, r *run, seg audio.Segment, text string, attempt int,
) (models.ChoreographySegment, *models.ChoreographyResult, error) {
	r.emit(StateAwaitingOracle, seg.Index, attempt, "")

	gen := r.trace.Generation(fmt.Sprintf("segment-%d", seg.Index), map[string]interface{}{
		"run_id":  r.id,
		"segment": seg.Index,
		"attempt": attempt,
	})
	defer gen.Finish()

	completion, err := o.oracle.Complete(ctx, text)
	o.recorder.RecordOracleCall(ctx, o.oracle.Model(), completion.Duration, completion.Usage, err == nil)
	if err != nil {
		gen.LogFailure(text, err, nil)
		return models.ChoreographySegment{}, nil, err
	}
	gen.LogCompletion(text, completion, nil)

	r.emit(StateValidating, seg.Index, attempt, "")
	parsed, err := Validate(completion.Text, Expectation{SegmentCount: 1})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			r.emit(StateValidating, seg.Index, attempt, string(verr.Kind))
		}
		return models.ChoreographySegment{}, nil, err
	}

	candidate := parsed.Segments[0]
	candidate.Idx = seg.Index
	candidate.Time = seg.TimeLabel()
	return candidate, parsed, nil
}

func (o *Orchestrator) promptRequest(r *run, seg audio.Segment, pool vocabulary.Pool) prompt.Request {
	req := prompt.Request{
		Style:           r.style,
		Characteristics: o.vocab.Characteristics(r.style),
		Segment:         seg,
		TempoBPM:        r.in.Timeline.TempoBPM,
		Energy:          r.in.Features[audio.FeatureEnergy],
		Pool:            pool,
		Avoid:           r.window.Items(),
		MinMoves:        prompt.DefaultMinMoves,
		MaxMoves:        prompt.DefaultMaxMoves,
	}
	if energy, ok := r.in.Envelope.Mean(seg.StartTime, seg.EndTime); ok {
		req.SegmentEnergy = &energy
	}
	return req
}

func newRand(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
