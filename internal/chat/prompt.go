package chat

import (
	"strings"

	"github.com/hyperjump/kaiwa/internal/models"
)

const instruction = "Answer the question based on the provided context only.\n" +
	"Please provide the most accurate response based on the question."

// BuildPrompt renders the grounded generation prompt: prior conversation,
// instruction block, retrieved context, then the question. History is
// rendered oldest first so the model reads the conversation in order; when
// limit > 0 only the most recent limit turns are included.
func BuildPrompt(history []models.Turn, limit int, contextText, question string) string {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	var b strings.Builder
	if len(history) > 0 {
		for _, turn := range history {
			switch turn.Role {
			case models.RoleAssistant:
				b.WriteString("AI: ")
			default:
				b.WriteString("User: ")
			}
			b.WriteString(turn.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(instruction)
	b.WriteString("\n\n")
	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
