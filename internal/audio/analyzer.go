package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Feature keys produced by analyzers.
const (
	FeatureEnergy           = "energy"
	FeatureEnergyStd        = "energy_std"
	FeatureSpectralCentroid = "spectral_centroid"
	FeatureZeroCrossingRate = "zero_crossing_rate"
	FeatureDuration         = "duration"
	FeatureDynamicRange     = "dynamic_range"
)

var (
	// ErrUnsupportedFormat is returned when an analyzer cannot decode the input container.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrAudioTooShort is returned when there are not enough samples to estimate a tempo.
	ErrAudioTooShort = errors.New("audio too short to analyze")
)

// Analyzer turns raw audio into a beat timeline plus descriptive features.
type Analyzer interface {
	Analyze(ctx context.Context, input AnalysisInput) (*Analysis, error)
	Name() string
}

// AnalysisInput carries either an on-disk path or the raw file bytes.
type AnalysisInput struct {
	Filename string
	Path     string
	Data     []byte
}

// Ext returns the lowercased file extension of the input, without the dot.
func (in AnalysisInput) Ext() string {
	name := in.Filename
	if name == "" {
		name = in.Path
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Analysis is the result of beat analysis for one audio file.
type Analysis struct {
	Timeline BeatTimeline       `json:"timeline"`
	Features map[string]float64 `json:"features"`
	Envelope *Envelope          `json:"-"`
}

// Feature returns a named feature, or 0 when the analyzer did not produce it.
func (a *Analysis) Feature(name string) float64 {
	if a == nil || a.Features == nil {
		return 0
	}
	return a.Features[name]
}

// SegmentEnergy returns the mean envelope energy inside the segment, falling back to the global energy.
func (a *Analysis) SegmentEnergy(seg Segment) float64 {
	if a == nil {
		return 0
	}
	if a.Envelope != nil {
		if e, ok := a.Envelope.Mean(seg.StartTime, seg.EndTime); ok {
			return e
		}
	}
	return a.Feature(FeatureEnergy)
}

// Envelope is a frame-rate RMS energy curve.
type Envelope struct {
	Values []float64
	Rate   float64 // frames per second
}

// Mean averages the envelope over [start, end) seconds.
func (e *Envelope) Mean(start, end float64) (float64, bool) {
	if e == nil || e.Rate <= 0 || len(e.Values) == 0 || end <= start {
		return 0, false
	}
	lo := int(start * e.Rate)
	hi := int(end * e.Rate)
	if lo < 0 {
		lo = 0
	}
	if hi > len(e.Values) {
		hi = len(e.Values)
	}
	if hi <= lo {
		return 0, false
	}
	sum := 0.0
	for _, v := range e.Values[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo), true
}

// NewAnalyzer picks the analyzer implementation by mode ("wav" or "script").
func NewAnalyzer(mode, python, scriptPath string) (Analyzer, error) {
	switch mode {
	case "", analyzerNameWAV:
		return NewWAVAnalyzer(), nil
	case analyzerNameScript:
		return NewScriptAnalyzer(python, scriptPath), nil
	default:
		return nil, fmt.Errorf("unknown analyzer mode: %s (allowed: wav, script)", mode)
	}
}
