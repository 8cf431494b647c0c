package choreography

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
)

// DefaultMovesPerSegment is how many moves a synthesized segment gets
const DefaultMovesPerSegment = 4

var (
	fallbackMotifs      = []string{"groove", "bounce", "flow", "hit"}
	fallbackTransitions = []string{"quarter-turn", "level-drop", "travel-diagonal"}
	defaultCharacters   = []string{"rhythmic", "expressive", "structured"}
)

// Fallback synthesizes schema-valid segments without the oracle
type Fallback struct {
	vocab           *vocabulary.Table
	movesPerSegment int
}

// NewFallback creates a synthesizer drawing movesPerSegment moves per segment
func NewFallback(vocab *vocabulary.Table, movesPerSegment int) *Fallback {
	if movesPerSegment <= 0 {
		movesPerSegment = DefaultMovesPerSegment
	}
	return &Fallback{vocab: vocab, movesPerSegment: movesPerSegment}
}

// Synthesize builds a full result for segments. Every segment carries fallback provenance.
func (f *Fallback) Synthesize(
	segments []audio.Segment, style string, pool []string, features map[string]float64, rng *rand.Rand,
) *models.ChoreographyResult {
	resolved, _ := f.vocab.ResolveStyle(style)
	result := &models.ChoreographyResult{
		Style:      resolved,
		GlobalCues: f.DeriveCues(resolved, features),
		Segments:   make([]models.ChoreographySegment, 0, len(segments)),
	}
	for _, seg := range segments {
		out := f.SynthesizeSegment(seg, resolved, pool, rng)
		out.Provenance = &models.Provenance{Source: models.SourceFallback}
		result.Segments = append(result.Segments, out)
	}
	return result
}

// SynthesizeSegment builds one segment with random enums and moves drawn from pool.
// An empty pool draws from the style's own vocabulary instead.
func (f *Fallback) SynthesizeSegment(
	seg audio.Segment, style string, pool []string, rng *rand.Rand,
) models.ChoreographySegment {
	source := pool
	if len(source) == 0 {
		source = f.vocab.Categories(style).Actions()
	}

	return models.ChoreographySegment{
		Idx:        seg.Index,
		Time:       seg.TimeLabel(),
		Accent:     pick(models.Accents, rng),
		Level:      pick(models.Levels, rng),
		Plane:      pick(models.Planes, rng),
		Motifs:     []string{pick(fallbackMotifs, rng)},
		Moves:      vocabulary.Choose(source, f.movesPerSegment, rng),
		Transition: pick(fallbackTransitions, rng),
	}
}

// DeriveCues describes the piece from audio features, or with neutral defaults when there are none
func (f *Fallback) DeriveCues(style string, features map[string]float64) models.GlobalCues {
	if len(features) == 0 {
		return models.GlobalCues{
			EnergyLevel:        models.EnergyMedium,
			Mood:               fmt.Sprintf("dynamic %s style", strings.ToLower(style)),
			KeyCharacteristics: append([]string(nil), defaultCharacters...),
		}
	}

	characteristics := f.vocab.Characteristics(style)
	if len(characteristics) == 0 {
		characteristics = append([]string(nil), defaultCharacters...)
	}
	return models.GlobalCues{
		EnergyLevel:        audio.EnergyBucket(features[audio.FeatureEnergy]),
		Mood:               audio.Mood(features),
		KeyCharacteristics: characteristics,
	}
}

func pick[T any](items []T, rng *rand.Rand) T {
	return items[rng.IntN(len(items))]
}
