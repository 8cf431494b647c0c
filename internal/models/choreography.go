package models

// Accent is how strongly a segment's movement lands on the beat
type Accent string

const (
	AccentStrong Accent = "strong"
	AccentMedium Accent = "medium"
	AccentWeak   Accent = "weak"
)

// Level is the vertical body level
type Level string

const (
	LevelHigh  Level = "high"
	LevelMid   Level = "mid"
	LevelLow   Level = "low"
	LevelFloor Level = "floor"
)

// Plane is the dominant movement plane
type Plane string

const (
	PlaneFrontal    Plane = "frontal"
	PlaneSagittal   Plane = "sagittal"
	PlaneTransverse Plane = "transverse"
)

// EnergyLevel is the qualitative loudness bucket
type EnergyLevel string

const (
	EnergyLow      EnergyLevel = "low"
	EnergyMedium   EnergyLevel = "medium"
	EnergyHigh     EnergyLevel = "high"
	EnergyVeryHigh EnergyLevel = "very_high"
)

// Difficulty is the estimated technical difficulty of a segment
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Source records which path produced a segment
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceRepaired Source = "repaired"
	SourceFallback Source = "fallback"
)

// Allowed enum values, in schema order
var (
	Accents      = []Accent{AccentStrong, AccentMedium, AccentWeak}
	Levels       = []Level{LevelHigh, LevelMid, LevelLow, LevelFloor}
	Planes       = []Plane{PlaneFrontal, PlaneSagittal, PlaneTransverse}
	EnergyLevels = []EnergyLevel{EnergyLow, EnergyMedium, EnergyHigh, EnergyVeryHigh}
)

// GlobalCues describes the whole piece
type GlobalCues struct {
	EnergyLevel        EnergyLevel `json:"energy_level"`
	Mood               string      `json:"mood"`
	KeyCharacteristics []string    `json:"key_characteristics"`
}

// Provenance tells diagnostics where a segment came from. It never changes the segment's shape.
type Provenance struct {
	Source      Source `json:"source"`
	PoolWidened bool   `json:"pool_widened,omitempty"`
	Attempts    int    `json:"attempts"`
}

// ChoreographySegment is the schema-validated unit of output, one per beat segment
type ChoreographySegment struct {
	Idx        int      `json:"idx"`
	Time       string   `json:"time"`
	Accent     Accent   `json:"accent"`
	Level      Level    `json:"level"`
	Plane      Plane    `json:"plane"`
	Motifs     []string `json:"motifs"`
	Moves      []string `json:"moves"`
	Transition string   `json:"transition"`

	RhythmBreakdown string      `json:"rhythm_breakdown,omitempty"`
	Difficulty      Difficulty  `json:"difficulty,omitempty"`
	Intensity       EnergyLevel `json:"intensity,omitempty"`
	Provenance      *Provenance `json:"provenance,omitempty"`
}

// ChoreographyResult is the top-level output, one segment per beat segment in order
type ChoreographyResult struct {
	Style         string                `json:"style"`
	GlobalCues    GlobalCues            `json:"global_cues"`
	Segments      []ChoreographySegment `json:"segments"`
	LowConfidence bool                  `json:"low_confidence,omitempty"`
}

// CountBySource tallies segments per provenance source
func (r *ChoreographyResult) CountBySource() map[Source]int {
	counts := map[Source]int{}
	for _, seg := range r.Segments {
		if seg.Provenance != nil {
			counts[seg.Provenance.Source]++
		}
	}
	return counts
}
