package doctools

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/prompts"

	"docqa/src/core/docqa"
)

// Document-level utilities operating on the full extracted text of one
// uploaded file, independent of the retrieval pipeline.

// maxPromptRunes caps how much document text is embedded in a utility
// prompt. Longer documents are truncated, not rejected.
const maxPromptRunes = 20000

// EmptyDocumentReply is returned instead of invoking generation when the
// document produced no text.
const EmptyDocumentReply = "The document appears to be empty or could not be read."

// Generator is the same text-generation capability the answer controller
// uses.
type Generator interface {
	Generate(ctx context.Context, prompt string) docqa.GenerateResult
}

const summarizeTemplate = `Based on the following document text, please create a concise and comprehensive summary.
Structure the summary logically, using section headers if appropriate.

Document Text:
---
{{.text}}
---

Summary:
`

const keyPointsTemplate = `Analyze the following document text and extract the most important key points and insights.
Present them as a clear, bullet-point list in markdown format.

Document Text:
---
{{.text}}
---

Key Points:
`

const keywordsTemplate = `Analyze the following document text and identify the top 10-15 most important keywords, phrases, or names.
Present them as a bulleted list.

Document Text:
---
{{.text}}
---

Key Terms:
`

const explainTemplate = `You are a helpful tutor. Based on the context from the document text provided,
explain the following concept in a simple and clear way: "{{.concept}}"

Use the following structure for your explanation:
- **Definition:** (Provide a clear definition)
- **Example:** (Give a simple example, preferably from the document context if available)
- **In Context:** (Explain how the concept is used or why it's important within the document)

Document Text:
---
{{.text}}
---

Explanation for "{{.concept}}":
`

const meetingMinutesTemplate = `You are an expert at creating meeting summaries. Analyze the following document, which contains
meeting notes or a transcript. Extract the key information and format it into a structured
"Meeting Minutes" report using the following headers in markdown:

- **Participants:**
- **Agenda:**
- **Decisions Made:**
- **Action Items:** (Include who is responsible and deadlines if mentioned)

If any of this information is not present, indicate "Not specified."

Document Text:
---
{{.text}}
---

Meeting Minutes:
`

var (
	summarizePrompt      = prompts.NewPromptTemplate(summarizeTemplate, []string{"text"})
	keyPointsPrompt      = prompts.NewPromptTemplate(keyPointsTemplate, []string{"text"})
	keywordsPrompt       = prompts.NewPromptTemplate(keywordsTemplate, []string{"text"})
	explainPrompt        = prompts.NewPromptTemplate(explainTemplate, []string{"text", "concept"})
	meetingMinutesPrompt = prompts.NewPromptTemplate(meetingMinutesTemplate, []string{"text"})
)

// Tools wraps the generation capability with the document-level operations.
type Tools struct {
	generator Generator
}

func New(generator Generator) *Tools {
	return &Tools{generator: generator}
}

func (t *Tools) Summarize(ctx context.Context, text string) (string, error) {
	return t.run(ctx, summarizePrompt, map[string]any{"text": truncate(text)})
}

func (t *Tools) KeyPoints(ctx context.Context, text string) (string, error) {
	return t.run(ctx, keyPointsPrompt, map[string]any{"text": truncate(text)})
}

func (t *Tools) Keywords(ctx context.Context, text string) (string, error) {
	return t.run(ctx, keywordsPrompt, map[string]any{"text": truncate(text)})
}

func (t *Tools) ExplainConcept(ctx context.Context, text, concept string) (string, error) {
	return t.run(ctx, explainPrompt, map[string]any{"text": truncate(text), "concept": concept})
}

func (t *Tools) MeetingMinutes(ctx context.Context, text string) (string, error) {
	return t.run(ctx, meetingMinutesPrompt, map[string]any{"text": truncate(text)})
}

func (t *Tools) run(ctx context.Context, tpl prompts.PromptTemplate, values map[string]any) (string, error) {
	if text, _ := values["text"].(string); text == "" {
		return EmptyDocumentReply, nil
	}

	prompt, err := tpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}

	gen := t.generator.Generate(ctx, prompt)
	if gen.Status != docqa.GenerateOK {
		if gen.Err != nil {
			return "", fmt.Errorf("generation failed: %w", gen.Err)
		}
		return "", fmt.Errorf("generation failed")
	}
	return gen.Text, nil
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPromptRunes {
		return text
	}
	return string(runes[:maxPromptRunes])
}
