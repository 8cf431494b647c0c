package audio

import "github.com/Conceptual-Machines/choreo-api/internal/models"

const (
	energyLow    = 0.05
	energyMedium = 0.1
	energyHigh   = 0.2

	brightCentroid = 2000.0
	darkCentroid   = 1500.0
	hipHopMinBPM   = 115.0
)

// EnergyBucket maps an RMS energy value onto the qualitative levels used in prompts and cues.
func EnergyBucket(energy float64) models.EnergyLevel {
	switch {
	case energy < energyLow:
		return models.EnergyLow
	case energy < energyMedium:
		return models.EnergyMedium
	case energy < energyHigh:
		return models.EnergyHigh
	default:
		return models.EnergyVeryHigh
	}
}

// Mood gives a one-word mood from loudness.
func Mood(features map[string]float64) string {
	energy := features[FeatureEnergy]
	switch {
	case energy > energyMedium:
		return "energetic"
	case energy < energyLow:
		return "calm"
	default:
		return "neutral"
	}
}

// SuggestStyle picks a dance style from loudness, brightness and tempo when the caller did not ask for one.
func SuggestStyle(features map[string]float64, tempoBPM float64) string {
	energy := features[FeatureEnergy]
	centroid := features[FeatureSpectralCentroid]

	switch {
	case energy > energyMedium && centroid > brightCentroid:
		if tempoBPM >= hipHopMinBPM {
			return "Hip-Hop"
		}
		return "House"
	case energy < energyLow && centroid < darkCentroid:
		return "Jazz"
	default:
		return "K-pop"
	}
}
