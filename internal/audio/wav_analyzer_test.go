package audio

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 22050

// clickTrack renders decaying 1 kHz bursts at bpm for seconds, as 16-bit PCM
func clickTrack(bpm, seconds float64) []int {
	n := int(seconds * testSampleRate)
	data := make([]int, n)
	interval := 60 / bpm
	burst := int(0.05 * testSampleRate)

	for beat := 0.0; beat < seconds; beat += interval {
		start := int(beat * testSampleRate)
		for i := 0; i < burst && start+i < n; i++ {
			t := float64(i) / testSampleRate
			amp := math.Exp(-t*60) * math.Sin(2*math.Pi*1000*t)
			data[start+i] = int(amp * 20000)
		}
	}
	return data
}

// encodeWAV writes samples through the go-audio encoder and returns the file bytes
func encodeWAV(t *testing.T, samples []int) (string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "click.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return path, data
}

func TestWAVAnalyzer_ClickTrack(t *testing.T) {
	path, data := encodeWAV(t, clickTrack(120, 8))
	analyzer := NewWAVAnalyzer()

	tests := []struct {
		name  string
		input AnalysisInput
	}{
		{name: "from bytes", input: AnalysisInput{Filename: "click.wav", Data: data}},
		{name: "from path", input: AnalysisInput{Path: path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := analyzer.Analyze(context.Background(), tt.input)
			require.NoError(t, err)

			timeline := analysis.Timeline
			require.NoError(t, timeline.Validate())
			assert.InDelta(t, 120, timeline.TempoBPM, 6)
			assert.InDelta(t, 16, len(timeline.BeatTimes), 2)

			assert.InDelta(t, 8.0, analysis.Feature(FeatureDuration), 0.01)
			assert.Greater(t, analysis.Feature(FeatureEnergy), 0.0)
			assert.Greater(t, analysis.Feature(FeatureDynamicRange), 0.0)
			assert.Greater(t, analysis.Feature(FeatureSpectralCentroid), 0.0)
			assert.Greater(t, analysis.Feature(FeatureZeroCrossingRate), 0.0)

			require.NotNil(t, analysis.Envelope)
			assert.InDelta(t, float64(testSampleRate)/defaultHopSize, analysis.Envelope.Rate, 1e-9)
		})
	}
}

func TestWAVAnalyzer_Rejects(t *testing.T) {
	_, short := encodeWAV(t, clickTrack(120, 0.5))

	tests := []struct {
		name  string
		input AnalysisInput
		want  error
	}{
		{name: "mp3 extension", input: AnalysisInput{Filename: "song.mp3", Data: []byte("ID3")}, want: ErrUnsupportedFormat},
		{name: "not a wav", input: AnalysisInput{Filename: "song.wav", Data: []byte("definitely not riff data")}, want: ErrUnsupportedFormat},
		{name: "too short", input: AnalysisInput{Filename: "short.wav", Data: short}, want: ErrAudioTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := NewWAVAnalyzer().Analyze(context.Background(), tt.input)
			assert.Nil(t, analysis)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWAVAnalyzer_Cancelled(t *testing.T) {
	_, data := encodeWAV(t, clickTrack(120, 8))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWAVAnalyzer().Analyze(ctx, AnalysisInput{Data: data})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroCrossingRate(t *testing.T) {
	assert.Equal(t, 0.0, zeroCrossingRate([]float64{1}))
	assert.Equal(t, 1.0, zeroCrossingRate([]float64{1, -1, 1, -1}))
	assert.Equal(t, 0.0, zeroCrossingRate([]float64{0.2, 0.4, 0.1}))
}

func TestEnvelope_Mean(t *testing.T) {
	env := &Envelope{Values: []float64{1, 2, 3, 4}, Rate: 2}

	mean, ok := env.Mean(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 1.5, mean)

	_, ok = env.Mean(1, 1)
	assert.False(t, ok)

	var missing *Envelope
	_, ok = missing.Mean(0, 1)
	assert.False(t, ok)

	analysis := &Analysis{Features: map[string]float64{FeatureEnergy: 0.3}, Envelope: env}
	assert.Equal(t, 3.5, analysis.SegmentEnergy(Segment{StartTime: 1, EndTime: 2}))
	assert.Equal(t, 0.3, analysis.SegmentEnergy(Segment{StartTime: 5, EndTime: 6}))
}

func TestNewAnalyzer(t *testing.T) {
	a, err := NewAnalyzer("", "", "")
	require.NoError(t, err)
	assert.Equal(t, "wav", a.Name())

	a, err = NewAnalyzer("script", "python3", "")
	require.NoError(t, err)
	assert.Equal(t, "script", a.Name())

	_, err = NewAnalyzer("essentia", "", "")
	assert.Error(t, err)
}
