package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/notescan/internal/core/domain"
)

const maxPromptText = 4000

func buildEnrichmentPrompt(ocrText string) string {
	snippet := ocrText
	if len(snippet) > maxPromptText {
		snippet = snippet[:maxPromptText]
	}
	return `You are an expert at reading handwritten notes.
Look at the attached page and the OCR output below.
Return only the corrected full text of the page. Write equations in plain notation
and mention any diagram, figure or table you see on its own line.

OCR output:
` + snippet
}

func buildAnswerPrompt(question string, results []domain.SearchResult) string {
	var contextBuilder strings.Builder
	for idx, r := range results {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] title=%s document=%s score=%.3f\n%s\n\n",
			idx+1,
			r.Title,
			r.DocumentID,
			r.Score,
			r.Snippet,
		))
	}

	return fmt.Sprintf(`You answer questions about the user's handwritten notes.
Use only the context below. If it does not contain the answer, say so clearly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}
