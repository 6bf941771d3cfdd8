package engine

import (
	"fmt"
	"strings"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

// historyWindow bounds how many prior messages enter the prompt.
const historyWindow = 6

// PromptAssembler renders the grounded prompt string: instructions,
// selected chunk text, a rolling history window, and the user question.
// Deterministic: identical inputs produce the identical string.
type PromptAssembler struct {
	// Language the assistant must answer in, e.g. "Arabic".
	Language string
}

// Assemble builds the single prompt string sent to the completion
// gateway. The context block is omitted when no chunks were selected,
// the history block when the chat has no prior messages.
func (a PromptAssembler) Assemble(chunks []core.ScoredChunk, history []models.Message, question string, creativityLevel int) string {
	var b strings.Builder

	b.WriteString("You are an intelligent assistant specialized in answering questions based on the supplied documents.\n")

	if len(chunks) > 0 {
		b.WriteString("\nReference content:\n")
		for i, ch := range chunks {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(ch.Chunk.Content)
		}
		b.WriteString("\n")
	}

	if len(history) > 0 {
		window := history
		if len(window) > historyWindow {
			window = window[len(window)-historyWindow:]
		}
		b.WriteString("\nPrevious conversation:\n")
		for i, msg := range window {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(roleLabel(msg.MessageType))
			b.WriteString(": ")
			b.WriteString(msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Answer rules:
1. Answer in clear and detailed %s
2. When reference content is present, ground your answer in it
3. If the answer is not found in the reference content, say so explicitly
4. Be accurate and helpful
5. Creativity level: %d%%

Question: %s`, a.Language, creativityLevel, question)

	return b.String()
}

func roleLabel(messageType string) string {
	if messageType == models.MessageTypeUser {
		return "User"
	}
	return "Assistant"
}
