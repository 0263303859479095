package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdoc/askdoc/internal/models"
)

func chunk(source, content string) models.RetrievedChunk {
	return models.RetrievedChunk{Content: content, SourceDocument: source, RelevanceScore: 0.2}
}

func TestPackContext_AllChunksFit(t *testing.T) {
	chunks := []models.RetrievedChunk{
		chunk("handbook.pdf", "Employees get 15 days PTO annually."),
		chunk("policies.pdf", "Carryover is capped at 5 days."),
	}

	contextText, sources := packContext(chunks, 100000)

	assert.Contains(t, contextText, "[Source 1: handbook.pdf]")
	assert.Contains(t, contextText, "[Source 2: policies.pdf]")
	assert.Contains(t, contextText, "Employees get 15 days PTO annually.")
	assert.Equal(t, []string{"handbook.pdf", "policies.pdf"}, sources)
}

func TestPackContext_StopsAtBudgetWithoutSplittingChunks(t *testing.T) {
	first := chunk("a.pdf", strings.Repeat("x", 100))
	second := chunk("b.pdf", strings.Repeat("y", 100))
	third := chunk("c.pdf", "small")

	// Budget fits the first chunk only; the second is dropped whole, and
	// packing stops there even though the third would fit
	firstBlock := "[Source 1: a.pdf]\n" + first.Content + "\n"
	contextText, sources := packContext([]models.RetrievedChunk{first, second, third}, len(firstBlock)+10)

	assert.Contains(t, contextText, first.Content)
	assert.NotContains(t, contextText, second.Content)
	assert.NotContains(t, contextText, third.Content)
	assert.Equal(t, []string{"a.pdf"}, sources)
}

func TestPackContext_NoChunks(t *testing.T) {
	contextText, sources := packContext(nil, 1000)
	assert.Empty(t, contextText)
	assert.Empty(t, sources)
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("What is the PTO policy?", "[Source 1: handbook.pdf]\ntext\n")

	assert.Contains(t, prompt, "Question: What is the PTO policy?")
	assert.Contains(t, prompt, "[Source 1: handbook.pdf]")
}
