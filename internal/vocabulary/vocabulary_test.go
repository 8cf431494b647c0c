package vocabulary

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
default_style: Hip-Hop
styles:
  Hip-Hop:
    basic_moves: [two-step, wop, smurf]
    advanced_moves: [windmill]
    grooves: [bounce, rock]
    transitions: [quarter-turn, level-drop]
    characteristics: [hard-hitting]
  House:
    basic_moves: [jack, skate]
    advanced_moves: [vogue]
    grooves: [bounce, flow]
    transitions: [glide-transition]
    characteristics: [fluid]
synonyms:
  - base: wave
    alternatives: [ripple]
  - base: pop
    alternatives: [hit, snap]
dimensions:
  level: [high, mid, low, floor]
`

func newRng() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func mustParse(t *testing.T) *Table {
	t.Helper()
	table, err := Parse([]byte(testYAML))
	require.NoError(t, err)
	return table
}

func TestDefault_LoadsEmbeddedVocabulary(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Hip-Hop", table.DefaultStyle())
	assert.ElementsMatch(t,
		[]string{"Breaking", "Contemporary", "Hip-Hop", "House", "Jazz", "K-pop"},
		table.Styles())
	assert.NotEmpty(t, table.Transitions("House"))
	assert.Contains(t, table.Dimensions(), "level")

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "styles: [unterminated"},
		{name: "no styles", yaml: "default_style: Hip-Hop\n"},
		{name: "unknown default", yaml: "default_style: Polka\nstyles:\n  House:\n    basic_moves: [jack]\n"},
		{name: "empty style", yaml: "default_style: House\nstyles:\n  House:\n    characteristics: [fluid]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestResolveStyle(t *testing.T) {
	table := mustParse(t)

	tests := []struct {
		input     string
		wantStyle string
		wantKnown bool
	}{
		{input: "House", wantStyle: "House", wantKnown: true},
		{input: "  house ", wantStyle: "House", wantKnown: true},
		{input: "HIP-HOP", wantStyle: "Hip-Hop", wantKnown: true},
		{input: "Polka", wantStyle: "Hip-Hop", wantKnown: false},
		{input: "", wantStyle: "Hip-Hop", wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			style, known := table.ResolveStyle(tt.input)
			assert.Equal(t, tt.wantStyle, style)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestUniverse_Deduplicates(t *testing.T) {
	table := mustParse(t)
	universe := table.Universe()

	seen := map[string]bool{}
	for _, token := range universe {
		assert.False(t, seen[token], "duplicate token %q", token)
		seen[token] = true
	}
	// bounce appears in both styles
	assert.True(t, seen["bounce"])
	assert.Len(t, universe, 13)
}

func TestSample(t *testing.T) {
	table := mustParse(t)

	tests := []struct {
		name   string
		style  string
		count  int
		avoid  map[string]bool
		checks func(t *testing.T, pool Pool)
	}{
		{
			name:  "own style only",
			style: "Hip-Hop",
			count: 5,
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.Equal(t, "Hip-Hop", pool.Style)
				assert.Len(t, pool.Actions, 5)
				assert.False(t, pool.Widened)
				own := table.Categories("Hip-Hop").Actions()
				for _, a := range pool.Actions {
					assert.Contains(t, own, a)
				}
			},
		},
		{
			name:  "unknown style falls back to default",
			style: "Polka",
			count: 3,
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.Equal(t, "Hip-Hop", pool.Style)
				assert.Len(t, pool.Actions, 3)
			},
		},
		{
			name:  "widens when own vocabulary is short",
			style: "House",
			count: 10,
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.True(t, pool.Widened)
				assert.Len(t, pool.Actions, 10)
			},
		},
		{
			name:  "never returns avoided tokens",
			style: "Hip-Hop",
			count: 20,
			avoid: map[string]bool{"two-step": true, "wop": true, "jack": true},
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.NotContains(t, pool.Actions, "two-step")
				assert.NotContains(t, pool.Actions, "wop")
				assert.NotContains(t, pool.Actions, "jack")
				assert.Len(t, pool.Actions, 10)
			},
		},
		{
			name:  "terminates with empty pool when everything is avoided",
			style: "House",
			count: 5,
			avoid: func() map[string]bool {
				avoid := map[string]bool{}
				for _, token := range table.Universe() {
					avoid[token] = true
				}
				return avoid
			}(),
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.Empty(t, pool.Actions)
				assert.True(t, pool.Widened)
			},
		},
		{
			name:  "zero count",
			style: "House",
			count: 0,
			checks: func(t *testing.T, pool Pool) {
				t.Helper()
				assert.Empty(t, pool.Actions)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := table.Sample(tt.style, tt.count, tt.avoid, newRng())

			seen := map[string]bool{}
			for _, a := range pool.Actions {
				assert.False(t, seen[a], "duplicate %q", a)
				seen[a] = true
			}
			tt.checks(t, pool)
		})
	}
}

func TestSample_DeterministicForSeed(t *testing.T) {
	table := mustParse(t)

	first := table.Sample("Hip-Hop", 6, nil, newRng())
	second := table.Sample("Hip-Hop", 6, nil, newRng())
	assert.Equal(t, first.Actions, second.Actions)
}

func TestPool_Canonical(t *testing.T) {
	pool := Pool{Actions: []string{"Two-Step", "wop"}}

	got, ok := pool.Canonical(" two-step ")
	assert.True(t, ok)
	assert.Equal(t, "Two-Step", got)

	assert.True(t, pool.Contains("WOP"))
	assert.False(t, pool.Contains("jack"))
}

func TestSubstitute(t *testing.T) {
	table := mustParse(t)

	tests := []struct {
		name   string
		token  string
		wantOK bool
		want   []string
	}{
		{name: "base term inside token", token: "Body-Wave", wantOK: true, want: []string{"body-ripple"}},
		{name: "first base term wins", token: "wave-pop", wantOK: true, want: []string{"ripple-pop"}},
		{name: "pop alternatives", token: "chest-pop", wantOK: true, want: []string{"chest-hit", "chest-snap"}},
		{name: "no base term", token: "Two-Step", wantOK: false, want: []string{"Two-Step"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Substitute(tt.token, newRng())
			assert.Equal(t, tt.wantOK, ok)
			assert.Contains(t, tt.want, got)
		})
	}
}

func TestRhythmBreakdown(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		beats int
		want  string
	}{
		{
			name:  "even split",
			moves: []string{"jack", "skate", "vogue", "flow"},
			beats: 8,
			want:  "1-2 jack | 3-4 skate | 5-6 vogue | 7-8 flow",
		},
		{
			name:  "one beat per move",
			moves: []string{"jack", "skate"},
			beats: 2,
			want:  "1 jack | 2 skate",
		},
		{
			name:  "more moves than beats",
			moves: []string{"a", "b", "c"},
			beats: 2,
			want:  "1 a | 2 b | 3 c",
		},
		{
			name:  "no moves",
			beats: 8,
			want:  "1-8 basic groove",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RhythmBreakdown(tt.moves, tt.beats)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasSuffix(got, " | "))
		})
	}
}
