package choreography

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/tidwall/gjson"
)

// ValidationKind separates unparseable output from well-formed output with the wrong shape
type ValidationKind string

const (
	KindParse  ValidationKind = "parse"
	KindSchema ValidationKind = "schema"
)

// ValidationError describes the first problem found in an oracle response
type ValidationError struct {
	Kind   ValidationKind
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s error at %s: %s", e.Kind, e.Path, e.Reason)
}

// Expectation carries what the caller knows about the response shape
type Expectation struct {
	// SegmentCount is the exact number of segments required; 0 skips the check
	SegmentCount int
}

const utf8BOM = "\ufeff"

// Validate parses raw oracle output into a ChoreographyResult.
// Code fences, surrounding prose and a BOM are tolerated; anything else wrong is a *ValidationError.
func Validate(raw string, exp Expectation) (*models.ChoreographyResult, error) {
	doc, ok := extractJSONObject(raw)
	if !ok {
		return nil, &ValidationError{Kind: KindParse, Reason: "no JSON object found"}
	}
	if !gjson.Valid(doc) {
		return nil, &ValidationError{Kind: KindParse, Reason: "output is not well-formed JSON"}
	}

	root := gjson.Parse(doc)
	if err := checkRoot(root, exp); err != nil {
		return nil, err
	}

	var result models.ChoreographyResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, &ValidationError{Kind: KindSchema, Reason: err.Error()}
	}
	return &result, nil
}

// CheckSegments re-validates a typed result against the same rules applied to oracle output
func CheckSegments(result *models.ChoreographyResult) error {
	if result == nil {
		return &ValidationError{Kind: KindSchema, Reason: "result is nil"}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return &ValidationError{Kind: KindParse, Reason: err.Error()}
	}
	_, err = Validate(string(data), Expectation{SegmentCount: len(result.Segments)})
	return err
}

// extractJSONObject strips a BOM and code fences and returns the outermost {...} span.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), utf8BOM))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func checkRoot(root gjson.Result, exp Expectation) error {
	if !root.IsObject() {
		return schemaErr("", "top level must be an object")
	}
	if err := requireString(root, "style"); err != nil {
		return err
	}

	cues := root.Get("global_cues")
	if !cues.IsObject() {
		return schemaErr("global_cues", "must be an object")
	}
	if err := requireEnum(cues, "energy_level", "global_cues.energy_level", enumStrings(models.EnergyLevels)); err != nil {
		return err
	}
	if err := requireString(cues, "mood"); err != nil {
		return prefixed(err, "global_cues.")
	}
	if err := requireStringArray(cues, "key_characteristics", "global_cues.key_characteristics", false); err != nil {
		return err
	}

	segments := root.Get("segments")
	if !segments.IsArray() {
		return schemaErr("segments", "must be an array")
	}
	items := segments.Array()
	if exp.SegmentCount > 0 && len(items) != exp.SegmentCount {
		return schemaErr("segments", fmt.Sprintf("expected %d segments, got %d", exp.SegmentCount, len(items)))
	}
	for i, seg := range items {
		if err := checkSegment(seg, fmt.Sprintf("segments.%d", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkSegment(seg gjson.Result, path string) error {
	if !seg.IsObject() {
		return schemaErr(path, "must be an object")
	}

	idx := seg.Get("idx")
	if idx.Type != gjson.Number || idx.Num < 0 || idx.Num != math.Trunc(idx.Num) {
		return schemaErr(path+".idx", "must be a non-negative integer")
	}
	for _, field := range []string{"time", "transition"} {
		if err := requireString(seg, field); err != nil {
			return prefixed(err, path+".")
		}
	}
	if err := requireEnum(seg, "accent", path+".accent", enumStrings(models.Accents)); err != nil {
		return err
	}
	if err := requireEnum(seg, "level", path+".level", enumStrings(models.Levels)); err != nil {
		return err
	}
	if err := requireEnum(seg, "plane", path+".plane", enumStrings(models.Planes)); err != nil {
		return err
	}
	if err := requireStringArray(seg, "motifs", path+".motifs", false); err != nil {
		return err
	}
	return requireStringArray(seg, "moves", path+".moves", true)
}

func requireString(obj gjson.Result, field string) error {
	v := obj.Get(field)
	if !v.Exists() {
		return schemaErr(field, "is required")
	}
	if v.Type != gjson.String {
		return schemaErr(field, "must be a string")
	}
	return nil
}

func requireEnum(obj gjson.Result, field, path string, allowed []string) error {
	v := obj.Get(field)
	if !v.Exists() {
		return schemaErr(path, "is required")
	}
	if v.Type != gjson.String {
		return schemaErr(path, "must be a string")
	}
	for _, a := range allowed {
		if v.Str == a {
			return nil
		}
	}
	return schemaErr(path, fmt.Sprintf("%q is not one of [%s]", v.Str, strings.Join(allowed, ", ")))
}

func requireStringArray(obj gjson.Result, field, path string, nonEmpty bool) error {
	v := obj.Get(field)
	if !v.Exists() {
		return schemaErr(path, "is required")
	}
	if !v.IsArray() {
		return schemaErr(path, "must be an array")
	}
	items := v.Array()
	if nonEmpty && len(items) == 0 {
		return schemaErr(path, "must not be empty")
	}
	for i, item := range items {
		if item.Type != gjson.String || strings.TrimSpace(item.Str) == "" {
			return schemaErr(fmt.Sprintf("%s.%d", path, i), "must be a non-empty string")
		}
	}
	return nil
}

func schemaErr(path, reason string) *ValidationError {
	return &ValidationError{Kind: KindSchema, Path: path, Reason: reason}
}

func prefixed(err error, prefix string) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Kind: ve.Kind, Path: prefix + ve.Path, Reason: ve.Reason}
	}
	return err
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
