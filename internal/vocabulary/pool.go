package vocabulary

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Pool is a sampled set of candidate actions offered to one generation call
type Pool struct {
	Style   string   `json:"style"`
	Actions []string `json:"actions"`
	// Widened is set when other styles' vocabularies were mixed in to reach the requested size
	Widened bool `json:"widened"`
}

// Contains reports whether token is in the pool, ignoring case
func (p Pool) Contains(token string) bool {
	_, ok := p.Canonical(token)
	return ok
}

// Canonical returns the pool's spelling of token, matched case-insensitively
func (p Pool) Canonical(token string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(token))
	for _, action := range p.Actions {
		if strings.ToLower(action) == needle {
			return action, true
		}
	}
	return "", false
}

// Sample draws up to count unique actions for style, never returning a token in avoid.
//
// When the style's own vocabulary minus avoid is smaller than count, every other style's vocabulary
// is added first and Widened is set. The result size is min(count, available).
func (t *Table) Sample(style string, count int, avoid map[string]bool, rng *rand.Rand) Pool {
	resolved, _ := t.ResolveStyle(style)
	pool := Pool{Style: resolved}
	if count <= 0 {
		return pool
	}

	seen := map[string]bool{}
	var available []string
	collect := func(tokens []string) {
		for _, token := range tokens {
			if avoid[token] || seen[token] {
				continue
			}
			seen[token] = true
			available = append(available, token)
		}
	}

	collect(t.styles[resolved].Actions())
	if len(available) < count {
		pool.Widened = true
		for _, name := range t.order {
			if name != resolved {
				collect(t.styles[name].Actions())
			}
		}
	}

	pool.Actions = Choose(available, count, rng)
	return pool
}

// Choose draws min(count, len(items)) distinct positions of items uniformly, leaving items untouched.
func Choose(items []string, count int, rng *rand.Rand) []string {
	if count <= 0 {
		return nil
	}
	if count > len(items) {
		count = len(items)
	}
	shuffled := append([]string(nil), items...)
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:count]
}

// Substitute swaps the first known base term inside token for a random synonym.
// Tokens without a base term come back unchanged with ok=false.
func (t *Table) Substitute(token string, rng *rand.Rand) (string, bool) {
	lower := strings.ToLower(token)
	for _, syn := range t.synonyms {
		if syn.Base == "" || len(syn.Alternatives) == 0 || !strings.Contains(lower, syn.Base) {
			continue
		}
		choice := syn.Alternatives[rng.IntN(len(syn.Alternatives))]
		return strings.ReplaceAll(lower, syn.Base, choice), true
	}
	return token, false
}

// RhythmBreakdown lays moves out over the segment's beat counts, e.g. "1-2 jack | 3-4 skate".
func RhythmBreakdown(moves []string, beats int) string {
	if len(moves) == 0 {
		return fmt.Sprintf("1-%d basic groove", max(beats, 1))
	}
	perMove := max(beats/len(moves), 1)

	parts := make([]string, 0, len(moves))
	for i, move := range moves {
		start := i*perMove + 1
		end := (i + 1) * perMove
		if start == end {
			parts = append(parts, fmt.Sprintf("%d %s", start, move))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d %s", start, end, move))
		}
	}
	return strings.Join(parts, " | ")
}
