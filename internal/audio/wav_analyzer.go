package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"os"

	"github.com/go-audio/wav"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	analyzerNameWAV = "wav"

	defaultFrameSize    = 1024
	defaultHopSize      = 512
	defaultMinBPM       = 70.0
	defaultMaxBPM       = 180.0
	spectralFrameSize   = 2048
	maxSpectralFrames   = 256
	minBeatsForTimeline = 2
)

// WAVAnalyzer is the built-in beat tracker: RMS envelope, onset strength, autocorrelation tempo and a
// phase-aligned beat grid. It trades accuracy for having no native dependencies.
type WAVAnalyzer struct {
	frameSize int
	hopSize   int
	minBPM    float64
	maxBPM    float64
}

// NewWAVAnalyzer creates an analyzer with the default frame layout and tempo search range.
func NewWAVAnalyzer() *WAVAnalyzer {
	return &WAVAnalyzer{
		frameSize: defaultFrameSize,
		hopSize:   defaultHopSize,
		minBPM:    defaultMinBPM,
		maxBPM:    defaultMaxBPM,
	}
}

// Name returns the analyzer name
func (a *WAVAnalyzer) Name() string {
	return analyzerNameWAV
}

// Analyze decodes a WAV file and estimates its tempo, beats and descriptive features.
func (a *WAVAnalyzer) Analyze(ctx context.Context, input AnalysisInput) (*Analysis, error) {
	if ext := input.Ext(); ext != "" && ext != "wav" && ext != "wave" {
		return nil, fmt.Errorf("%w: %s (the built-in analyzer reads WAV only)", ErrUnsupportedFormat, ext)
	}

	data := input.Data
	if len(data) == 0 && input.Path != "" {
		raw, err := os.ReadFile(input.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file: %w", err)
		}
		data = raw
	}

	samples, sampleRate, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}
	return a.analyzeSamples(ctx, samples, sampleRate)
}

// decodeWAV returns mono samples normalized to [-1, 1].
func decodeWAV(data []byte) ([]float64, int, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: invalid WAV file", ErrUnsupportedFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read PCM data: %w", err)
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	bitDepth := int(decoder.BitDepth)
	if bitDepth < 1 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	numSamples := len(buf.Data) / numChannels
	samples := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		sum := 0
		for ch := 0; ch < numChannels; ch++ {
			sum += buf.Data[i*numChannels+ch]
		}
		samples[i] = float64(sum) / float64(numChannels) / scale
	}

	return samples, int(decoder.SampleRate), nil
}

func (a *WAVAnalyzer) analyzeSamples(ctx context.Context, samples []float64, sampleRate int) (*Analysis, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate is zero", ErrUnsupportedFormat)
	}
	frameRate := float64(sampleRate) / float64(a.hopSize)
	minLag := int(math.Floor(frameRate * 60 / a.maxBPM))
	maxLag := int(math.Ceil(frameRate * 60 / a.minBPM))

	envelope := rmsEnvelope(samples, a.frameSize, a.hopSize)
	if len(envelope) < 2*maxLag {
		return nil, fmt.Errorf("%w: %d frames, need %d", ErrAudioTooShort, len(envelope), 2*maxLag)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	onset := onsetStrength(envelope)
	period := bestPeriod(onset, minLag, maxLag)
	tempo := 60 * frameRate / period
	beats := beatGrid(onset, period, frameRate)
	if len(beats) < minBeatsForTimeline {
		return nil, fmt.Errorf("%w: only %d beats found", ErrAudioTooShort, len(beats))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := map[string]float64{
		FeatureEnergy:           stat.Mean(envelope, nil),
		FeatureEnergyStd:        stat.StdDev(envelope, nil),
		FeatureDynamicRange:     floats.Max(envelope) - floats.Min(envelope),
		FeatureSpectralCentroid: spectralCentroid(samples, sampleRate),
		FeatureZeroCrossingRate: zeroCrossingRate(samples),
		FeatureDuration:         float64(len(samples)) / float64(sampleRate),
	}

	return &Analysis{
		Timeline: BeatTimeline{TempoBPM: tempo, BeatTimes: beats},
		Features: features,
		Envelope: &Envelope{Values: envelope, Rate: frameRate},
	}, nil
}

// rmsEnvelope computes frame RMS with the given hop.
func rmsEnvelope(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	n := (len(samples)-frameSize)/hopSize + 1
	env := make([]float64, n)
	for i := 0; i < n; i++ {
		frame := samples[i*hopSize : i*hopSize+frameSize]
		env[i] = math.Sqrt(floats.Dot(frame, frame) / float64(frameSize))
	}
	return env
}

// onsetStrength is the half-wave rectified first difference of the envelope, mean-removed.
func onsetStrength(env []float64) []float64 {
	onset := make([]float64, len(env))
	for i := 1; i < len(env); i++ {
		if d := env[i] - env[i-1]; d > 0 {
			onset[i] = d
		}
	}
	mean := stat.Mean(onset, nil)
	for i := range onset {
		onset[i] = math.Max(onset[i]-mean, 0)
	}
	return onset
}

// bestPeriod returns the autocorrelation peak lag in frames, refined by parabolic interpolation.
func bestPeriod(onset []float64, minLag, maxLag int) float64 {
	if minLag < 1 {
		minLag = 1
	}
	scores := make([]float64, maxLag+2)
	best := minLag
	for lag := minLag - 1; lag <= maxLag+1 && lag < len(onset); lag++ {
		if lag < 1 {
			continue
		}
		n := len(onset) - lag
		scores[lag] = floats.Dot(onset[:n], onset[lag:]) / float64(n)
	}
	for lag := minLag; lag <= maxLag; lag++ {
		if scores[lag] > scores[best] {
			best = lag
		}
	}

	prev, cur, next := scores[best-1], scores[best], scores[best+1]
	denom := prev - 2*cur + next
	if denom == 0 {
		return float64(best)
	}
	offset := 0.5 * (prev - next) / denom
	if math.Abs(offset) > 1 {
		return float64(best)
	}
	return float64(best) + offset
}

// beatGrid places beats every period frames, at the phase that collects the most onset energy.
func beatGrid(onset []float64, period, frameRate float64) []float64 {
	bestPhase, bestScore := 0, -1.0
	for phase := 0; phase < int(math.Ceil(period)); phase++ {
		score := 0.0
		for pos := float64(phase); int(math.Round(pos)) < len(onset); pos += period {
			score += onset[int(math.Round(pos))]
		}
		if score > bestScore {
			bestPhase, bestScore = phase, score
		}
	}

	var beats []float64
	for pos := float64(bestPhase); int(math.Round(pos)) < len(onset); pos += period {
		beats = append(beats, pos/frameRate)
	}
	return beats
}

// spectralCentroid averages the magnitude-weighted mean frequency over evenly spaced Hann-windowed frames.
func spectralCentroid(samples []float64, sampleRate int) float64 {
	if len(samples) < spectralFrameSize {
		return 0
	}
	total := (len(samples) - spectralFrameSize) / spectralFrameSize
	step := 1
	if total > maxSpectralFrames {
		step = total / maxSpectralFrames
	}

	binHz := float64(sampleRate) / float64(spectralFrameSize)
	var centroids []float64
	frame := make([]float64, spectralFrameSize)
	for i := 0; i <= total; i += step {
		copy(frame, samples[i*spectralFrameSize:(i+1)*spectralFrameSize])
		window.Apply(frame, window.Hann)
		spectrum := fft.FFTReal(frame)

		weighted, magSum := 0.0, 0.0
		for bin := 0; bin <= spectralFrameSize/2; bin++ {
			mag := cmplx.Abs(spectrum[bin])
			weighted += float64(bin) * binHz * mag
			magSum += mag
		}
		if magSum > 0 {
			centroids = append(centroids, weighted/magSum)
		}
	}
	if len(centroids) == 0 {
		return 0
	}
	return stat.Mean(centroids, nil)
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}
