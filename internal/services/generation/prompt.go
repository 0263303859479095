package generation

import (
	"fmt"
	"strings"

	"github.com/askdoc/askdoc/internal/models"
)

// answerInstruction is the fixed grounded-generation template. The model is
// asked to stay within the supplied context and cite sources.
const answerInstruction = `You are a knowledge-base assistant. Answer the user's question using only the provided context documents.

When answering:
1. Base every statement on the provided context
2. Cite sources by document name where relevant
3. If the context does not fully answer the question, say so clearly
4. Be concise and accurate`

// defaultMaxContextChars bounds the packed context when the config leaves
// max_context_chars unset.
const defaultMaxContextChars = 100000

// packContext concatenates chunk contents in the order received up to
// maxContextChars. Packing is all-or-nothing per chunk: a chunk that would
// exceed the remaining budget is dropped along with everything after it,
// never truncated mid-content. Returns the packed context and the source
// names of the chunks that made it in.
func packContext(chunks []models.RetrievedChunk, maxContextChars int) (string, []string) {
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	var parts []string
	var sources []string
	total := 0

	for i, chunk := range chunks {
		block := fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, chunk.SourceDocument, chunk.Content)
		if total+len(block) > maxContextChars {
			break
		}
		parts = append(parts, block)
		sources = append(sources, chunk.SourceDocument)
		total += len(block)
	}

	return strings.Join(parts, "\n"), sources
}

// buildPrompt fills the instruction template with the query and packed
// context.
func buildPrompt(queryText, contextText string) string {
	return fmt.Sprintf("Question: %s\n\nContext:\n%s\n\nProvide a detailed, helpful answer based on the above context. If the documents do not fully answer the question, say what is missing.", queryText, contextText)
}
