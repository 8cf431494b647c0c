package choreography

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
	"github.com/stretchr/testify/require"
)

// Move tokens here avoid every synonym base so post-processing leaves them alone.
const testVocabularyYAML = `
default_style: Hip-Hop
styles:
  Hip-Hop:
    basic_moves: [two-step, running-man, roger-rabbit, cabbage-patch, reject, wop]
    advanced_moves: [windmill, headspin]
    grooves: [bounce, rock]
    transitions: [quarter-turn, half-turn]
    characteristics: [hard-hitting, groove-based]
  House:
    basic_moves: [jack, skate, lofting, shuffle]
    advanced_moves: [vogue, waacking]
    grooves: [groove, sway]
    transitions: [smooth-transition]
    characteristics: [fluid, soulful]
synonyms:
  - base: wave
    alternatives: [ripple, undulation]
dimensions:
  level: [high, mid, low, floor]
`

func testVocabulary(t *testing.T) *vocabulary.Table {
	t.Helper()
	table, err := vocabulary.Parse([]byte(testVocabularyYAML))
	require.NoError(t, err)
	return table
}

func testRng() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

// MockOracle is a func-field Completer
type MockOracle struct {
	mu           sync.Mutex
	prompts      []string
	completeFunc func(ctx context.Context, prompt string, call int) (llm.Completion, error)
}

func (m *MockOracle) Complete(ctx context.Context, prompt string) (llm.Completion, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	call := len(m.prompts)
	m.mu.Unlock()

	if m.completeFunc == nil {
		return llm.Completion{}, llm.ErrOracleUnavailable
	}
	return m.completeFunc(ctx, prompt, call)
}

func (m *MockOracle) Model() string {
	return "mock-model"
}

func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func respondWith(text string) func(context.Context, string, int) (llm.Completion, error) {
	return func(context.Context, string, int) (llm.Completion, error) {
		return completion(text), nil
	}
}

func completion(text string) llm.Completion {
	return llm.Completion{
		Text:     text,
		Model:    "mock-model",
		Provider: "mock",
		Duration: time.Millisecond,
		Usage:    llm.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
	}
}

// oracleResponse renders a one-segment oracle answer carrying moves
func oracleResponse(moves ...string) string {
	if moves == nil {
		moves = []string{}
	}
	doc := map[string]any{
		"style": "Hip-Hop",
		"global_cues": map[string]any{
			"energy_level":        "high",
			"mood":                "hype",
			"key_characteristics": []string{"sharp", "bouncy"},
		},
		"segments": []map[string]any{{
			"idx":        3,
			"time":       "9.9s-9.9s",
			"accent":     "strong",
			"level":      "mid",
			"plane":      "frontal",
			"motifs":     []string{"groove"},
			"moves":      moves,
			"transition": "quarter-turn",
		}},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

// evenBeats returns n beats spaced by step seconds starting at 0
func evenBeats(n int, step float64) []float64 {
	beats := make([]float64, n)
	for i := range beats {
		beats[i] = float64(i) * step
	}
	return beats
}

// MockRecorder counts recorded metrics
type MockRecorder struct {
	mu       sync.Mutex
	outcomes []models.Source
	calls    int
	failed   int
	runs     int
}

func (m *MockRecorder) RecordSegmentOutcome(_ context.Context, _ string, source models.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, source)
}

func (m *MockRecorder) RecordOracleCall(_ context.Context, _ string, _ time.Duration, _ llm.Usage, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if !success {
		m.failed++
	}
}

func (m *MockRecorder) RecordRun(context.Context, string, int, int, int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}
