package handlers

import (
	"net/http"

	"github.com/Conceptual-Machines/choreo-api/internal/vocabulary"
	"github.com/gin-gonic/gin"
)

type VocabularyHandler struct {
	vocab *vocabulary.Table
}

func NewVocabularyHandler(vocab *vocabulary.Table) *VocabularyHandler {
	return &VocabularyHandler{vocab: vocab}
}

// StyleInfo summarizes one style's vocabulary
type StyleInfo struct {
	Name       string                `json:"name"`
	Categories vocabulary.Categories `json:"categories"`
	Counts     map[string]int        `json:"counts"`
	Actions    int                   `json:"actions"`
}

type VocabularyResponse struct {
	DefaultStyle string               `json:"default_style"`
	Styles       []StyleInfo          `json:"styles"`
	Synonyms     []vocabulary.Synonym `json:"synonyms"`
	Dimensions   map[string][]string  `json:"dimensions"`
}

// GetVocabulary lists styles, their categories and counts, and the movement dimensions
func (h *VocabularyHandler) GetVocabulary(c *gin.Context) {
	resp := VocabularyResponse{
		DefaultStyle: h.vocab.DefaultStyle(),
		Synonyms:     h.vocab.Synonyms(),
		Dimensions:   h.vocab.Dimensions(),
	}

	for _, name := range h.vocab.Styles() {
		cats := h.vocab.Categories(name)
		resp.Styles = append(resp.Styles, StyleInfo{
			Name:       name,
			Categories: cats,
			Counts: map[string]int{
				"basic_moves":     len(cats.BasicMoves),
				"advanced_moves":  len(cats.AdvancedMoves),
				"grooves":         len(cats.Grooves),
				"transitions":     len(cats.Transitions),
				"characteristics": len(cats.Characteristics),
			},
			Actions: len(cats.Actions()),
		})
	}

	c.JSON(http.StatusOK, resp)
}
