package service

import (
	"strings"

	"github.com/knoguchi/editorialbot/internal/corpus"
)

const promptInstruction = "Please answer the question based on the provided editorial content.\n" +
	"Cite the source URL of each editorial you rely on."

// BuildPrompt embeds the shortlisted editorials and the question in a single
// user message.
func BuildPrompt(shortlist []corpus.Document, question string) string {
	var sb strings.Builder

	sb.WriteString("Context:\n")
	for i, doc := range shortlist {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Title: ")
		sb.WriteString(doc.Title)
		sb.WriteString("\nContent: ")
		sb.WriteString(doc.FullText)
		if doc.URL != "" {
			sb.WriteString("\nSource: ")
			sb.WriteString(doc.URL)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(promptInstruction)

	return sb.String()
}
