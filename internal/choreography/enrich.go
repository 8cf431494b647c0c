package choreography

import (
	"strings"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
)

var (
	complexMoves       = []string{"windmill", "headspin", "flare", "turtle", "cricket", "airflare"}
	intermediateMoves  = []string{"spin", "turn", "jump", "leap", "slide", "freeze"}
	complexTransitions = []string{"full-turn", "spin", "level-drop", "travel-diagonal", "air-step"}
	highEnergyMoves    = []string{"jump", "leap", "bounce", "pop", "hit", "punch", "explosive"}
	mediumEnergyMoves  = []string{"run", "fast", "quick", "dynamic"}
)

// Enrich fills the optional descriptive fields of a segment. Required fields are left alone.
func Enrich(seg models.ChoreographySegment, beatCount int) models.ChoreographySegment {
	seg.RhythmBreakdown = vocabulary.RhythmBreakdown(seg.Moves, beatCount)
	seg.Difficulty = AssessDifficulty(seg)
	seg.Intensity = AssessIntensity(seg)
	return seg
}

// AssessDifficulty scores moves, level and transition into a difficulty bucket
func AssessDifficulty(seg models.ChoreographySegment) models.Difficulty {
	score := 0
	for _, move := range seg.Moves {
		switch {
		case containsAny(move, complexMoves):
			score += 4
		case containsAny(move, intermediateMoves):
			score += 2
		default:
			score++
		}
	}

	switch seg.Level {
	case models.LevelFloor:
		score += 3
	case models.LevelHigh:
		score += 2
	}

	if containsAny(seg.Transition, complexTransitions) {
		score += 3
	}

	switch {
	case score <= 4:
		return models.DifficultyBeginner
	case score <= 8:
		return models.DifficultyIntermediate
	case score <= 12:
		return models.DifficultyAdvanced
	default:
		return models.DifficultyExpert
	}
}

// AssessIntensity scores accent and move energy into an intensity bucket
func AssessIntensity(seg models.ChoreographySegment) models.EnergyLevel {
	score := 0
	switch seg.Accent {
	case models.AccentStrong:
		score = 4
	case models.AccentMedium:
		score = 2
	case models.AccentWeak:
		score = 1
	}

	for _, move := range seg.Moves {
		switch {
		case containsAny(move, highEnergyMoves):
			score += 3
		case containsAny(move, mediumEnergyMoves):
			score++
		}
	}

	switch {
	case score <= 3:
		return models.EnergyLow
	case score <= 6:
		return models.EnergyMedium
	case score <= 9:
		return models.EnergyHigh
	default:
		return models.EnergyVeryHigh
	}
}

func containsAny(s string, terms []string) bool {
	lower := strings.ToLower(s)
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
