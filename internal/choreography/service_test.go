package choreography

import (
	"context"
	"errors"
	"testing"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAnalyzer is a func-field audio.Analyzer
type MockAnalyzer struct {
	analyzeFunc func(ctx context.Context, input audio.AnalysisInput) (*audio.Analysis, error)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, input audio.AnalysisInput) (*audio.Analysis, error) {
	return m.analyzeFunc(ctx, input)
}

func (m *MockAnalyzer) Name() string {
	return "mock"
}

func newTestService(t *testing.T, analyzer audio.Analyzer) *Service {
	t.Helper()
	orch := NewOrchestrator(testVocabulary(t), nil, Settings{CandidateCount: 8})
	return NewService(orch, analyzer, 2)
}

func TestService_Generate(t *testing.T) {
	timeline := audio.BeatTimeline{TempoBPM: 120, BeatTimes: evenBeats(17, 0.5)}
	brightSlow := map[string]float64{audio.FeatureEnergy: 0.15, audio.FeatureSpectralCentroid: 2500}

	tests := []struct {
		name     string
		analyzer *MockAnalyzer
		req      Request
		checks   func(t *testing.T, result *models.ChoreographyResult, err error)
	}{
		{
			name: "precomputed timeline",
			req:  Request{Timeline: &timeline, Style: "Hip-Hop"},
			checks: func(t *testing.T, result *models.ChoreographyResult, err error) {
				require.NoError(t, err)
				assert.Len(t, result.Segments, 2)
				assert.Equal(t, "Hip-Hop", result.Style)
			},
		},
		{
			name: "beats per segment override",
			req:  Request{Timeline: &timeline, Style: "Hip-Hop", BeatsPerSegment: 4},
			checks: func(t *testing.T, result *models.ChoreographyResult, err error) {
				require.NoError(t, err)
				assert.Len(t, result.Segments, 4)
			},
		},
		{
			name: "style suggested from features",
			req: Request{
				Timeline: &audio.BeatTimeline{TempoBPM: 100, BeatTimes: evenBeats(17, 0.6)},
				Features: brightSlow,
			},
			checks: func(t *testing.T, result *models.ChoreographyResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, "House", result.Style)
			},
		},
		{
			name: "audio is analyzed",
			analyzer: &MockAnalyzer{analyzeFunc: func(_ context.Context, input audio.AnalysisInput) (*audio.Analysis, error) {
				if input.Filename != "track.wav" || string(input.Data) != "RIFF" {
					return nil, errors.New("unexpected input")
				}
				return &audio.Analysis{
					Timeline: timeline,
					Features: brightSlow,
					Envelope: &audio.Envelope{Values: []float64{0.1, 0.2}, Rate: 1},
				}, nil
			}},
			req: Request{Audio: []byte("RIFF"), Filename: "track.wav"},
			checks: func(t *testing.T, result *models.ChoreographyResult, err error) {
				require.NoError(t, err)
				assert.Equal(t, "Hip-Hop", result.Style)
				assert.Equal(t, models.EnergyHigh, result.GlobalCues.EnergyLevel)
				assert.Len(t, result.Segments, 2)
			},
		},
		{
			name: "analyzer failure",
			analyzer: &MockAnalyzer{analyzeFunc: func(context.Context, audio.AnalysisInput) (*audio.Analysis, error) {
				return nil, audio.ErrUnsupportedFormat
			}},
			req: Request{Audio: []byte("ID3"), Filename: "track.mp3"},
			checks: func(t *testing.T, result *models.ChoreographyResult, err error) {
				assert.Nil(t, result)
				assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)
			},
		},
		{
			name: "audio without analyzer",
			req:  Request{Audio: []byte("RIFF"), Filename: "track.wav"},
			checks: func(t *testing.T, _ *models.ChoreographyResult, err error) {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			},
		},
		{
			name: "nothing to choreograph",
			req:  Request{Style: "House"},
			checks: func(t *testing.T, _ *models.ChoreographyResult, err error) {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			},
		},
		{
			name: "negative beats per segment",
			req:  Request{Timeline: &timeline, BeatsPerSegment: -2},
			checks: func(t *testing.T, _ *models.ChoreographyResult, err error) {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			},
		},
		{
			name: "malformed timeline",
			req:  Request{Timeline: &audio.BeatTimeline{TempoBPM: 0, BeatTimes: []float64{0, 1}}, Style: "House"},
			checks: func(t *testing.T, _ *models.ChoreographyResult, err error) {
				assert.ErrorIs(t, err, audio.ErrMalformedTimeline)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var analyzer audio.Analyzer
			if tt.analyzer != nil {
				analyzer = tt.analyzer
			}
			result, err := newTestService(t, analyzer).Generate(context.Background(), tt.req)
			tt.checks(t, result, err)
		})
	}
}

func TestService_GenerateWithObserver(t *testing.T) {
	timeline := audio.BeatTimeline{TempoBPM: 120, BeatTimes: evenBeats(17, 0.5)}
	var events []Event

	_, err := newTestService(t, nil).GenerateWithObserver(context.Background(), Request{Timeline: &timeline}, func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, StateAssembled, events[len(events)-1].State)
	assert.Equal(t, 2, events[len(events)-1].Total)
}

func TestService_GenerateBatch(t *testing.T) {
	timeline := audio.BeatTimeline{TempoBPM: 120, BeatTimes: evenBeats(17, 0.5)}
	reqs := []Request{
		{Timeline: &timeline, Style: "Hip-Hop"},
		{Style: "House"},
		{Timeline: &timeline, Style: "House", BeatsPerSegment: 4},
	}

	items, err := newTestService(t, nil).GenerateBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, item := range items {
		assert.Equal(t, i, item.Index)
	}
	require.NotNil(t, items[0].Result)
	assert.Len(t, items[0].Result.Segments, 2)
	assert.Empty(t, items[0].Error)

	assert.Nil(t, items[1].Result)
	assert.Contains(t, items[1].Error, "either audio or a timeline is required")

	require.NotNil(t, items[2].Result)
	assert.Len(t, items[2].Result.Segments, 4)
}

func TestService_GenerateBatchCancelled(t *testing.T) {
	timeline := audio.BeatTimeline{TempoBPM: 120, BeatTimes: evenBeats(17, 0.5)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := newTestService(t, nil).GenerateBatch(ctx, []Request{{Timeline: &timeline}, {Timeline: &timeline}})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotEmpty(t, item.Error)
	}
}
