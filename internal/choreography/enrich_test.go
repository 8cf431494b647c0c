package choreography

import (
	"testing"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAssessDifficulty(t *testing.T) {
	tests := []struct {
		name string
		seg  models.ChoreographySegment
		want models.Difficulty
	}{
		{
			name: "simple footwork",
			seg:  models.ChoreographySegment{Moves: []string{"two-step", "jack"}, Level: models.LevelMid, Transition: "quarter-turn"},
			want: models.DifficultyBeginner,
		},
		{
			name: "turns up high",
			seg:  models.ChoreographySegment{Moves: []string{"spin-out", "slide"}, Level: models.LevelHigh, Transition: "quarter-turn"},
			want: models.DifficultyIntermediate,
		},
		{
			name: "power move on the floor",
			seg:  models.ChoreographySegment{Moves: []string{"windmill", "two-step", "jack"}, Level: models.LevelFloor, Transition: "step"},
			want: models.DifficultyAdvanced,
		},
		{
			name: "stacked power moves",
			seg:  models.ChoreographySegment{Moves: []string{"windmill", "Flare", "spin"}, Level: models.LevelHigh, Transition: "full-turn"},
			want: models.DifficultyExpert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessDifficulty(tt.seg))
		})
	}
}

func TestAssessIntensity(t *testing.T) {
	tests := []struct {
		name string
		seg  models.ChoreographySegment
		want models.EnergyLevel
	}{
		{name: "weak sway", seg: models.ChoreographySegment{Accent: models.AccentWeak, Moves: []string{"sway"}}, want: models.EnergyLow},
		{name: "medium quick step", seg: models.ChoreographySegment{Accent: models.AccentMedium, Moves: []string{"quick-step"}}, want: models.EnergyLow},
		{name: "medium punch", seg: models.ChoreographySegment{Accent: models.AccentMedium, Moves: []string{"punch"}}, want: models.EnergyMedium},
		{name: "strong jump", seg: models.ChoreographySegment{Accent: models.AccentStrong, Moves: []string{"jump", "sway"}}, want: models.EnergyHigh},
		{name: "strong jump and bounce", seg: models.ChoreographySegment{Accent: models.AccentStrong, Moves: []string{"jump", "bounce"}}, want: models.EnergyVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessIntensity(tt.seg))
		})
	}
}

func TestEnrich_LeavesRequiredFieldsAlone(t *testing.T) {
	seg := models.ChoreographySegment{
		Idx:        2,
		Time:       "8.0s-12.0s",
		Accent:     models.AccentStrong,
		Level:      models.LevelMid,
		Plane:      models.PlaneFrontal,
		Motifs:     []string{"groove"},
		Moves:      []string{"two-step", "wop", "reject", "rock"},
		Transition: "half-turn",
	}

	out := Enrich(seg, 8)

	assert.Equal(t, "1-2 two-step | 3-4 wop | 5-6 reject | 7-8 rock", out.RhythmBreakdown)
	assert.Equal(t, models.DifficultyBeginner, out.Difficulty)
	assert.Equal(t, models.EnergyMedium, out.Intensity)

	out.RhythmBreakdown, out.Difficulty, out.Intensity = "", "", ""
	assert.Equal(t, seg, out)
}
