package answer

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"docqa/src/core/docqa"
)

// Canned replies. These are part of the behavior contract with the UI and
// the tests: changing any of them is a breaking change.
const (
	// RefusalPhrase is the literal string the document-only prompt instructs
	// the model to emit when the context cannot answer the question. The
	// controller matches it verbatim to suppress source citations.
	RefusalPhrase = "I couldn't find this information in the uploaded documents."

	GreetingReply = "Hello! How can I help with your files today?"

	NoIndexGuidance = "Please upload documents first."

	DegradedNoticePrefix = "The assistant is busy due to high traffic. Here is a response based only on your documents:\n\n---\n\n"

	OverloadApology = "I'm sorry, the assistant is experiencing high traffic right now. Please try again in a moment."
)

const documentOnlyTemplate = `You are a precise document assistant.
Your task is to answer the user's question based *only* on the provided document context.
If the information is not present in the context, you must state: "I couldn't find this information in the uploaded documents."
Do not use any external knowledge. Do not make up answers.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

const hybridTemplate = `You are an expert assistant. Your goal is to be as helpful as possible.
A user has asked a question. You have been provided with some context from their documents.

Your instructions are:
1. First, critically evaluate the provided context. Is it relevant and does it actually help answer the user's question?
2. If the context is relevant, answer the question using ONLY the information from the context. At the end of your answer, cite the source (e.g., [Source: report.pdf, page 2]).
3. If the context is NOT relevant or does not contain the answer, you MUST IGNORE IT COMPLETELY. In this case, answer the question using your own general knowledge. Do not mention the documents or context at all.

Context:
{{.context}}

Question:
{{.question}}

Answer:
`

// promptFor binds each mode to an immutable template value. Adding a mode
// means adding a template here, not branching elsewhere.
var promptFor = map[Mode]prompts.PromptTemplate{
	ModeDocumentOnly: prompts.NewPromptTemplate(documentOnlyTemplate, []string{"context", "question"}),
	ModeHybrid:       prompts.NewPromptTemplate(hybridTemplate, []string{"context", "question"}),
}

// formatContext renders retrieved chunks into the prompt context block, one
// provenance-tagged entry per chunk.
func formatContext(chunks []docqa.ScoredChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		position := sc.Chunk.Meta.Label()
		if position == "" {
			position = "N/A"
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s, Page/Slide: %s\nContent: %s",
			sc.Chunk.Meta.Source, position, sc.Chunk.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func buildPrompt(mode Mode, chunks []docqa.ScoredChunk, question string) (string, error) {
	tpl, ok := promptFor[mode]
	if !ok {
		return "", fmt.Errorf("no prompt template for mode %q", mode)
	}
	return tpl.Format(map[string]any{
		"context":  formatContext(chunks),
		"question": question,
	})
}
