package prompt

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
)

const (
	// DefaultMinMoves and DefaultMaxMoves bound the number of moves asked for per segment
	DefaultMinMoves = 4
	DefaultMaxMoves = 6

	noneListed = "none"
)

// Request is everything one segment prompt depends on
type Request struct {
	Style           string
	Characteristics []string
	Segment         audio.Segment
	TempoBPM        float64
	Energy          float64
	// SegmentEnergy is the envelope energy inside the segment; nil when no envelope was available
	SegmentEnergy *float64
	Pool          vocabulary.Pool
	Avoid         []string
	MinMoves      int
	MaxMoves      int
}

type templates struct {
	system   string
	contract string
	examples []string
}

var loadTemplate = sync.OnceValues(func() (*templates, error) {
	loader := NewPromptLoader()
	system, err := loader.GetSystemPrompt()
	if err != nil {
		return nil, err
	}
	contract, err := loader.GetOutputContract()
	if err != nil {
		return nil, err
	}
	examples, err := loader.GetFewShotExamples()
	if err != nil {
		return nil, err
	}
	return &templates{system: system, contract: contract, examples: examples}, nil
})

// Builder builds per-segment choreography prompts.
// The rng only decides which worked example is shown.
type Builder struct {
	tmpl *templates
	rng  *rand.Rand
}

// NewPromptBuilder creates a prompt builder drawing examples with rng
func NewPromptBuilder(rng *rand.Rand) (*Builder, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	return &Builder{tmpl: tmpl, rng: rng}, nil
}

// SystemPrompt returns the static system instruction
func (b *Builder) SystemPrompt() string {
	return b.tmpl.system
}

// Build renders the user prompt for one segment
func (b *Builder) Build(req Request) string {
	minMoves, maxMoves := req.MinMoves, req.MaxMoves
	if minMoves <= 0 {
		minMoves = DefaultMinMoves
	}
	if maxMoves < minMoves {
		maxMoves = max(DefaultMaxMoves, minMoves)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create choreography for one segment of a %s routine.\n\n", req.Style)

	sb.WriteString("MUSIC\n")
	fmt.Fprintf(&sb, "- Tempo: %.1f BPM\n", req.TempoBPM)
	fmt.Fprintf(&sb, "- Energy: %.3f (%s)\n", req.Energy, audio.EnergyBucket(req.Energy))
	if req.SegmentEnergy != nil {
		fmt.Fprintf(&sb, "- Segment energy: %.3f (%s)\n", *req.SegmentEnergy, audio.EnergyBucket(*req.SegmentEnergy))
	}
	if len(req.Characteristics) > 0 {
		fmt.Fprintf(&sb, "- Style characteristics: %s\n", strings.Join(req.Characteristics, ", "))
	}

	sb.WriteString("\nSEGMENT\n")
	fmt.Fprintf(&sb, "- idx: %d\n", req.Segment.Index)
	fmt.Fprintf(&sb, "- time: %s\n", req.Segment.TimeLabel())
	fmt.Fprintf(&sb, "- beats: %d\n", req.Segment.BeatCount)

	sb.WriteString("\nCANDIDATE POOL (use only these moves)\n")
	sb.WriteString(joinOrNone(req.Pool.Actions))
	sb.WriteString("\n\nAVOID (used recently, do not repeat)\n")
	sb.WriteString(joinOrNone(req.Avoid))

	sb.WriteString("\n\nEXAMPLE OUTPUT\n")
	sb.WriteString(b.pickExample())

	sb.WriteString("\n\nOUTPUT CONTRACT\n")
	sb.WriteString(strings.NewReplacer(
		"{{SEGMENT_COUNT}}", "1",
		"{{SEGMENT_INDEX}}", strconv.Itoa(req.Segment.Index),
		"{{MIN_MOVES}}", strconv.Itoa(minMoves),
		"{{MAX_MOVES}}", strconv.Itoa(maxMoves),
	).Replace(b.tmpl.contract))
	sb.WriteString("\n")

	return sb.String()
}

func (b *Builder) pickExample() string {
	if len(b.tmpl.examples) == 1 || b.rng == nil {
		return b.tmpl.examples[0]
	}
	return b.tmpl.examples[b.rng.IntN(len(b.tmpl.examples))]
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return noneListed
	}
	return strings.Join(items, ", ")
}
