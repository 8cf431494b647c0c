package choreography

import (
	"math/rand/v2"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
)

// RepairOutcome says what happened to an oracle segment's moves
type RepairOutcome int

const (
	// RepairUnchanged means every move was a pool token and there were enough of them
	RepairUnchanged RepairOutcome = iota
	// RepairApplied means moves were dropped, re-cased or topped up from the pool
	RepairApplied
	// RepairEmpty means no oracle move survived; the segment should fall back
	RepairEmpty
)

// RepairMoves keeps only oracle moves that belong to the candidate pool and are not avoided.
// Survivors take the pool's spelling and duplicates are dropped. A short list is topped up to
// minMoves with unused pool tokens.
func RepairMoves(
	seg models.ChoreographySegment, pool vocabulary.Pool, avoid map[string]bool, minMoves int, rng *rand.Rand,
) (models.ChoreographySegment, RepairOutcome) {
	kept := make([]string, 0, len(seg.Moves))
	used := map[string]bool{}
	changed := false

	for _, move := range seg.Moves {
		canonical, ok := pool.Canonical(move)
		if !ok || avoid[canonical] || used[canonical] {
			changed = true
			continue
		}
		if canonical != move {
			changed = true
		}
		used[canonical] = true
		kept = append(kept, canonical)
	}

	if len(kept) == 0 {
		return seg, RepairEmpty
	}

	if len(kept) < minMoves {
		var unused []string
		for _, action := range pool.Actions {
			if !used[action] && !avoid[action] {
				unused = append(unused, action)
			}
		}
		if extra := vocabulary.Choose(unused, minMoves-len(kept), rng); len(extra) > 0 {
			kept = append(kept, extra...)
			changed = true
		}
	}

	if !changed {
		return seg, RepairUnchanged
	}
	seg.Moves = kept
	return seg, RepairApplied
}
