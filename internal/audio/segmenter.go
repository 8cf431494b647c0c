package audio

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// boundaryEpsilon absorbs float noise when comparing segment bounds to the last beat.
const boundaryEpsilon = 1e-9

// ErrMalformedTimeline is returned when a beat timeline cannot be segmented.
var ErrMalformedTimeline = errors.New("malformed beat timeline")

// BeatTimeline is the output of beat analysis: a tempo and strictly increasing beat timestamps in seconds.
type BeatTimeline struct {
	TempoBPM  float64   `json:"tempo_bpm"`
	BeatTimes []float64 `json:"beat_times"`
}

// Segment is a contiguous window of the timeline spanning a fixed number of beats.
type Segment struct {
	Index     int     `json:"index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	BeatCount int     `json:"beat_count"`
}

// TimeLabel formats the segment bounds the way they appear in choreography output.
func (s Segment) TimeLabel() string {
	return fmt.Sprintf("%.1fs-%.1fs", s.StartTime, s.EndTime)
}

// Validate checks the timeline preconditions for segmentation.
func (t BeatTimeline) Validate() error {
	if len(t.BeatTimes) == 0 {
		return fmt.Errorf("%w: no beats", ErrMalformedTimeline)
	}
	if t.TempoBPM <= 0 || math.IsNaN(t.TempoBPM) || math.IsInf(t.TempoBPM, 0) {
		return fmt.Errorf("%w: tempo must be positive, got %v", ErrMalformedTimeline, t.TempoBPM)
	}
	for i, b := range t.BeatTimes {
		if b < 0 || math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: beat %d has invalid time %v", ErrMalformedTimeline, i, b)
		}
		if i > 0 && b <= t.BeatTimes[i-1] {
			return fmt.Errorf("%w: beat %d (%.3fs) does not follow beat %d (%.3fs)",
				ErrMalformedTimeline, i, b, i-1, t.BeatTimes[i-1])
		}
	}
	return nil
}

// LowConfidence reports whether the timeline is too short to segment meaningfully.
func (t BeatTimeline) LowConfidence() bool {
	return len(t.BeatTimes) < 2
}

// Segment splits the beat timeline into consecutive windows of beatsPerSegment beats.
//
// Windows are half-open [start, end) and cover [0, last beat). The final window is clipped to the
// last beat, so the beat at the very end is never counted. A timeline with fewer than two beats
// yields a single zero-length segment.
func (t BeatTimeline) Segment(beatsPerSegment int) ([]Segment, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if beatsPerSegment < 1 {
		return nil, fmt.Errorf("%w: beats per segment must be >= 1, got %d", ErrMalformedTimeline, beatsPerSegment)
	}

	if t.LowConfidence() {
		return []Segment{{Index: 0}}, nil
	}

	last := t.BeatTimes[len(t.BeatTimes)-1]
	segmentDuration := float64(beatsPerSegment) / (t.TempoBPM / 60.0)

	var segments []Segment
	start := 0.0
	for i := 0; start < last-boundaryEpsilon; i++ {
		end := math.Min(float64(i+1)*segmentDuration, last)
		if last-end < boundaryEpsilon {
			end = last
		}
		segments = append(segments, Segment{
			Index:     i,
			StartTime: start,
			EndTime:   end,
			Duration:  end - start,
			BeatCount: t.countBeats(start, end),
		})
		start = end
	}

	return segments, nil
}

// countBeats counts beats in [start, end).
func (t BeatTimeline) countBeats(start, end float64) int {
	lo := sort.SearchFloat64s(t.BeatTimes, start)
	hi := sort.SearchFloat64s(t.BeatTimes, end)
	return hi - lo
}

// SegmentBeats is the functional form of BeatTimeline.Segment.
func SegmentBeats(beatTimes []float64, tempoBPM float64, beatsPerSegment int) ([]Segment, error) {
	return BeatTimeline{TempoBPM: tempoBPM, BeatTimes: beatTimes}.Segment(beatsPerSegment)
}
