package choreography

import (
	"math/rand/v2"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
)

// PostProcessor applies synonym substitution and tracks recently used moves
type PostProcessor struct {
	vocab *vocabulary.Table
}

// NewPostProcessor creates a post-processor over the given vocabulary
func NewPostProcessor(vocab *vocabulary.Table) *PostProcessor {
	return &PostProcessor{vocab: vocab}
}

// PostProcess substitutes synonyms into the segment's moves and records the final moves in the window.
// The input segment and window are not modified.
func (p *PostProcessor) PostProcess(
	seg models.ChoreographySegment, window RecentWindow, rng *rand.Rand,
) (models.ChoreographySegment, RecentWindow) {
	moves := make([]string, len(seg.Moves))
	for i, move := range seg.Moves {
		moves[i], _ = p.vocab.Substitute(move, rng)
	}
	seg.Moves = moves
	seg.Motifs = append([]string(nil), seg.Motifs...)

	return seg, window.Add(moves...)
}
