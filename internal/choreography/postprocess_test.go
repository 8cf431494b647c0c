package choreography

import (
	"strings"
	"testing"

	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPostProcess(t *testing.T) {
	post := NewPostProcessor(testVocabulary(t))
	seg := models.ChoreographySegment{
		Motifs: []string{"groove"},
		Moves:  []string{"arm-wave", "two-step", "Body-Wave"},
	}
	window := NewRecentWindow(20).Add("wop")

	out, next := post.PostProcess(seg, window, testRng())

	assert.Len(t, out.Moves, 3)
	assert.True(t, strings.HasPrefix(out.Moves[0], "arm-"))
	assert.NotContains(t, out.Moves[0], "wave")
	assert.Equal(t, "two-step", out.Moves[1])
	assert.True(t, strings.HasPrefix(out.Moves[2], "body-"))

	assert.Equal(t, append([]string{"wop"}, out.Moves...), next.Items())
	assert.Equal(t, []string{"wop"}, window.Items())
	assert.Equal(t, []string{"arm-wave", "two-step", "Body-Wave"}, seg.Moves)
}
