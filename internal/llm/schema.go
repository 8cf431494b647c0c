package llm

import "github.com/Conceptual-Machines/choreo-api/internal/models"

const (
	choreographySchemaName = "choreography_segment"
	minMovesPerSegment     = 1
)

// ChoreographyOutputSchema returns the output schema for one choreography response.
// OpenAI strict mode requires additionalProperties: false, so every property is listed in required.
func ChoreographyOutputSchema() *OutputSchema {
	return &OutputSchema{
		Name:        choreographySchemaName,
		Description: "Choreography for one beat segment of a dance routine",
		Schema:      GetChoreographySchema(),
	}
}

// GetChoreographySchema returns the JSON schema for choreography output
func GetChoreographySchema() map[string]any {
	stringArray := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string", "minLength": 1},
	}
	segment := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"idx":        map[string]any{"type": "integer", "minimum": 0},
			"time":       map[string]any{"type": "string"},
			"accent":     map[string]any{"type": "string", "enum": enumValues(models.Accents)},
			"level":      map[string]any{"type": "string", "enum": enumValues(models.Levels)},
			"plane":      map[string]any{"type": "string", "enum": enumValues(models.Planes)},
			"motifs":     stringArray,
			"moves":      withMinItems(stringArray, minMovesPerSegment),
			"transition": map[string]any{"type": "string"},
		},
		"required":             []string{"idx", "time", "accent", "level", "plane", "motifs", "moves", "transition"},
		"additionalProperties": false,
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"style": map[string]any{"type": "string"},
			"global_cues": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"energy_level":        map[string]any{"type": "string", "enum": enumValues(models.EnergyLevels)},
					"mood":                map[string]any{"type": "string"},
					"key_characteristics": stringArray,
				},
				"required":             []string{"energy_level", "mood", "key_characteristics"},
				"additionalProperties": false,
			},
			"segments": map[string]any{
				"type":  "array",
				"items": segment,
			},
		},
		"required":             []string{"style", "global_cues", "segments"},
		"additionalProperties": false,
	}
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func withMinItems(schema map[string]any, n int) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	out["minItems"] = n
	return out
}
