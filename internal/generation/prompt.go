package generation

import (
	"fmt"
	"strings"

	"ragchat/internal/domain"
)

const systemPrompt = "You are an assistant that answers questions about a document. " +
	"Answer using only the provided context and the conversation history. " +
	"If the context does not contain the information, say that there is not enough data to answer."

const noContext = "(no relevant context found)"

// RenderPrompt builds the prompt for one turn. Identical inputs always render
// identical prompts.
func RenderPrompt(question, history string, chunks []string) domain.Prompt {
	var b strings.Builder
	b.WriteString("Context:\n")
	if len(chunks) == 0 {
		b.WriteString(noContext)
	}
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, strings.TrimSpace(c))
	}
	if history != "" {
		b.WriteString("\n\nConversation history:\n")
		b.WriteString(history)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return domain.Prompt{System: systemPrompt, User: b.String()}
}
