package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Conceptual-Machines/choreo-api/pkg/embedded"
)

const analyzerNameScript = "script"

// ScriptAnalyzer delegates beat tracking to an external librosa script run through python.
type ScriptAnalyzer struct {
	python     string
	scriptPath string
}

// NewScriptAnalyzer creates a script-backed analyzer. An empty scriptPath uses the embedded script.
func NewScriptAnalyzer(python, scriptPath string) *ScriptAnalyzer {
	if python == "" {
		python = "python3"
	}
	return &ScriptAnalyzer{python: python, scriptPath: scriptPath}
}

// Name returns the analyzer name
func (a *ScriptAnalyzer) Name() string {
	return analyzerNameScript
}

// scriptOutput is the JSON document printed by the analysis script.
type scriptOutput struct {
	Success   bool               `json:"success"`
	TempoBPM  float64            `json:"tempo_bpm"`
	BeatTimes []float64          `json:"beat_times"`
	Features  map[string]float64 `json:"features"`
	Error     string             `json:"error,omitempty"`
	ErrorType string             `json:"error_type,omitempty"`
}

// Analyze runs the script against the input file and parses its report.
func (a *ScriptAnalyzer) Analyze(ctx context.Context, input AnalysisInput) (*Analysis, error) {
	workDir, err := os.MkdirTemp("", "choreo-analyze-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	scriptPath, err := a.resolveScript(workDir)
	if err != nil {
		return nil, err
	}
	audioPath, err := materialize(workDir, input)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.python, scriptPath, audioPath)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("analyzer script failed: %w, stderr: %s", err, truncate(stderr.String(), 500))
	}

	return parseScriptOutput(stdout.Bytes())
}

func parseScriptOutput(raw []byte) (*Analysis, error) {
	var out scriptOutput
	if err := json.Unmarshal(bytes.TrimSpace(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w, raw output: %s", err, truncate(string(raw), 500))
	}
	if !out.Success {
		return nil, fmt.Errorf("audio analysis failed: %s (%s)", out.Error, out.ErrorType)
	}
	if out.Features == nil {
		out.Features = map[string]float64{}
	}
	return &Analysis{
		Timeline: BeatTimeline{TempoBPM: out.TempoBPM, BeatTimes: out.BeatTimes},
		Features: out.Features,
	}, nil
}

func (a *ScriptAnalyzer) resolveScript(workDir string) (string, error) {
	if a.scriptPath != "" {
		if _, err := os.Stat(a.scriptPath); err != nil {
			return "", fmt.Errorf("analyzer script not found: %w", err)
		}
		return a.scriptPath, nil
	}
	path := filepath.Join(workDir, "analyze_beats.py")
	if err := os.WriteFile(path, embedded.AnalyzeBeatsPy, 0o600); err != nil {
		return "", fmt.Errorf("failed to write analyzer script: %w", err)
	}
	return path, nil
}

// materialize makes sure the audio exists on disk, since the script reads files by path.
func materialize(workDir string, input AnalysisInput) (string, error) {
	if input.Path != "" {
		return input.Path, nil
	}
	if len(input.Data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	name := "input"
	if ext := input.Ext(); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(workDir, name)
	if err := os.WriteFile(path, input.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage audio file: %w", err)
	}
	return path, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
