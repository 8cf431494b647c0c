package vocabulary

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Conceptual-Machines/choreo-api/pkg/embedded"
	"gopkg.in/yaml.v3"
)

// Categories is one style's action vocabulary, split by category
type Categories struct {
	BasicMoves      []string `yaml:"basic_moves" json:"basic_moves"`
	AdvancedMoves   []string `yaml:"advanced_moves" json:"advanced_moves"`
	Grooves         []string `yaml:"grooves" json:"grooves"`
	Transitions     []string `yaml:"transitions" json:"transitions"`
	Characteristics []string `yaml:"characteristics" json:"characteristics"`
}

// Actions returns every action token of the style, de-duplicated, in category order
func (c Categories) Actions() []string {
	seen := map[string]bool{}
	var out []string
	for _, group := range [][]string{c.BasicMoves, c.AdvancedMoves, c.Grooves, c.Transitions} {
		for _, token := range group {
			if !seen[token] {
				seen[token] = true
				out = append(out, token)
			}
		}
	}
	return out
}

// Synonym maps a base term to interchangeable alternatives
type Synonym struct {
	Base         string   `yaml:"base" json:"base"`
	Alternatives []string `yaml:"alternatives" json:"alternatives"`
}

type document struct {
	DefaultStyle string                `yaml:"default_style"`
	Styles       map[string]Categories `yaml:"styles"`
	Synonyms     []Synonym             `yaml:"synonyms"`
	Dimensions   map[string][]string   `yaml:"dimensions"`
}

// Table is the read-only action vocabulary shared by every orchestration run
type Table struct {
	defaultStyle string
	styles       map[string]Categories
	order        []string
	lookup       map[string]string
	synonyms     []Synonym
	dimensions   map[string][]string
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(embedded.VocabularyYAML)
})

// Default returns the embedded vocabulary, parsed once per process
func Default() (*Table, error) {
	return loadDefault()
}

// Parse builds a Table from its YAML form
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if len(doc.Styles) == 0 {
		return nil, fmt.Errorf("vocabulary defines no styles")
	}
	if _, ok := doc.Styles[doc.DefaultStyle]; !ok {
		return nil, fmt.Errorf("default style %q is not defined", doc.DefaultStyle)
	}

	t := &Table{
		defaultStyle: doc.DefaultStyle,
		styles:       doc.Styles,
		lookup:       make(map[string]string, len(doc.Styles)),
		synonyms:     doc.Synonyms,
		dimensions:   doc.Dimensions,
	}
	for name, cats := range doc.Styles {
		if len(cats.Actions()) == 0 {
			return nil, fmt.Errorf("style %q has no actions", name)
		}
		t.order = append(t.order, name)
		t.lookup[strings.ToLower(name)] = name
	}
	sort.Strings(t.order)
	return t, nil
}

// DefaultStyle returns the style used when a requested style is unknown
func (t *Table) DefaultStyle() string {
	return t.defaultStyle
}

// ResolveStyle maps a style name case-insensitively onto a defined style.
// Unknown names resolve to the default style with known=false.
func (t *Table) ResolveStyle(style string) (resolved string, known bool) {
	if name, ok := t.lookup[strings.ToLower(strings.TrimSpace(style))]; ok {
		return name, true
	}
	return t.defaultStyle, false
}

// Styles lists the defined styles in sorted order
func (t *Table) Styles() []string {
	return append([]string(nil), t.order...)
}

// Categories returns the vocabulary for a style, resolving unknown styles to the default
func (t *Table) Categories(style string) Categories {
	resolved, _ := t.ResolveStyle(style)
	return t.styles[resolved]
}

// Transitions returns the transition tokens of a style
func (t *Table) Transitions(style string) []string {
	return append([]string(nil), t.Categories(style).Transitions...)
}

// Characteristics returns descriptive keywords for a style
func (t *Table) Characteristics(style string) []string {
	return append([]string(nil), t.Categories(style).Characteristics...)
}

// Universe returns every action token across all styles, de-duplicated
func (t *Table) Universe() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range t.order {
		for _, token := range t.styles[name].Actions() {
			if !seen[token] {
				seen[token] = true
				out = append(out, token)
			}
		}
	}
	return out
}

// Synonyms returns the synonym table in match order
func (t *Table) Synonyms() []Synonym {
	return append([]Synonym(nil), t.synonyms...)
}

// Dimensions returns the descriptive movement dimensions (level, plane, direction, ...)
func (t *Table) Dimensions() map[string][]string {
	out := make(map[string][]string, len(t.dimensions))
	for k, v := range t.dimensions {
		out[k] = append([]string(nil), v...)
	}
	return out
}
