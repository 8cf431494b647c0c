package audio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScriptOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
		checks  func(t *testing.T, analysis *Analysis)
	}{
		{
			name: "success",
			raw:  `{"success": true, "tempo_bpm": 123.0, "beat_times": [0.5, 1.0, 1.5], "features": {"energy": 0.12, "spectral_centroid": 2100}}`,
			checks: func(t *testing.T, analysis *Analysis) {
				assert.Equal(t, 123.0, analysis.Timeline.TempoBPM)
				assert.Equal(t, []float64{0.5, 1.0, 1.5}, analysis.Timeline.BeatTimes)
				assert.Equal(t, 0.12, analysis.Feature(FeatureEnergy))
				assert.Nil(t, analysis.Envelope)
			},
		},
		{
			name: "missing features",
			raw:  "\n{\"success\": true, \"tempo_bpm\": 90, \"beat_times\": [0, 1]}\n",
			checks: func(t *testing.T, analysis *Analysis) {
				assert.NotNil(t, analysis.Features)
				assert.Equal(t, 0.0, analysis.Feature(FeatureEnergy))
			},
		},
		{
			name:    "script reported failure",
			raw:     `{"success": false, "error": "cannot decode", "error_type": "DecodeError"}`,
			wantErr: "cannot decode (DecodeError)",
		},
		{
			name:    "not json",
			raw:     "Traceback (most recent call last):",
			wantErr: "failed to parse analyzer output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := parseScriptOutput([]byte(tt.raw))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.checks(t, analysis)
		})
	}
}

func TestScriptAnalyzer_Analyze(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell in place of python")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake_analyze.sh")
	body := `#!/bin/sh
test -f "$1" || { echo '{"success": false, "error": "missing file", "error_type": "IOError"}'; exit 0; }
echo '{"success": true, "tempo_bpm": 100, "beat_times": [0, 0.6, 1.2], "features": {"energy": 0.07}}'
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o700))

	analyzer := NewScriptAnalyzer("sh", script)

	analysis, err := analyzer.Analyze(context.Background(), AnalysisInput{Filename: "take.mp3", Data: []byte("ID3")})
	require.NoError(t, err)
	assert.Equal(t, 100.0, analysis.Timeline.TempoBPM)
	assert.Len(t, analysis.Timeline.BeatTimes, 3)

	_, err = analyzer.Analyze(context.Background(), AnalysisInput{Path: filepath.Join(dir, "absent.wav")})
	assert.ErrorContains(t, err, "missing file")

	_, err = analyzer.Analyze(context.Background(), AnalysisInput{Filename: "empty.wav"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestScriptAnalyzer_MissingScript(t *testing.T) {
	analyzer := NewScriptAnalyzer("", filepath.Join(t.TempDir(), "nope.py"))
	_, err := analyzer.Analyze(context.Background(), AnalysisInput{Filename: "a.wav", Data: []byte("RIFF")})
	assert.ErrorContains(t, err, "analyzer script not found")
}
