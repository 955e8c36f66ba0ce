package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

// Mode selects the answering policy for one question.
type Mode string

const (
	// ModeDocumentOnly answers strictly from retrieved context and refuses
	// with RefusalPhrase when the context is insufficient.
	ModeDocumentOnly Mode = "document_only"
	// ModeHybrid prefers retrieved context but falls back to the model's
	// general knowledge when the context is irrelevant.
	ModeHybrid Mode = "hybrid"
)

// ParseMode maps a user-supplied mode string to a Mode. The boolean reports
// whether the mode is known.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeDocumentOnly, ModeHybrid:
		return m, true
	}
	return "", false
}

// state tracks the controller's position in the per-question lifecycle. It
// exists for logging, not for control flow; idle is the implicit state
// between questions.
type state string

const (
	stateRetrieving state = "retrieving"
	stateDrafting   state = "drafting"
	stateFallback   state = "fallback"
	stateDone       state = "done"
)

// Generator is the text-generation capability. It reports its outcome as a
// typed status rather than an error the controller would have to classify.
type Generator interface {
	Generate(ctx context.Context, prompt string) docqa.GenerateResult
}

// Retriever supplies the ranked context chunks for one question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]docqa.ScoredChunk, error)
}

// Result is one answered question.
type Result struct {
	Answer   string            `json:"answer"`
	Sources  []docqa.SourceRef `json:"sources"`
	Degraded bool              `json:"degraded,omitempty"`
}

var greetings = map[string]struct{}{
	"hi":    {},
	"hello": {},
	"hey":   {},
}

// Controller runs the per-question state machine: greeting short-circuit,
// retrieval, mode-bound prompting, and the overload fallback policy. It is
// stateless across questions and safe for concurrent use.
type Controller struct {
	generator Generator
}

func NewController(generator Generator) *Controller {
	return &Controller{generator: generator}
}

// Ask answers one question. The retriever may be nil when no document batch
// has been ingested yet; that case yields upload guidance, not an error.
// Errors are returned only for retrieval failures; generation failures are
// always translated to user-facing text by the fallback policy.
func (c *Controller) Ask(ctx context.Context, retriever Retriever, question string, mode Mode) (Result, error) {
	logger := log.Logger().WithValues("mode", string(mode))

	if _, ok := greetings[strings.ToLower(strings.TrimSpace(question))]; ok {
		logger.V(1).Info("greeting short-circuit")
		return Result{Answer: GreetingReply, Sources: []docqa.SourceRef{}}, nil
	}

	if retriever == nil {
		logger.V(1).Info("question before any ingest")
		return Result{Answer: NoIndexGuidance, Sources: []docqa.SourceRef{}}, nil
	}

	st := stateRetrieving
	logger.V(1).Info("retrieving context", "state", string(st))
	chunks, err := retriever.Retrieve(ctx, question)
	if err != nil {
		logger.Error(err, "retrieval failed", "state", string(st))
		return Result{}, fmt.Errorf("retrieval failed: %w", err)
	}

	st = stateDrafting
	logger.V(1).Info("drafting answer", "state", string(st), "chunks", len(chunks))
	prompt, err := buildPrompt(mode, chunks, question)
	if err != nil {
		return Result{}, err
	}

	gen := c.generator.Generate(ctx, prompt)
	switch gen.Status {
	case docqa.GenerateOK:
		st = stateDone
		logger.V(1).Info("answer drafted", "state", string(st), "chunks", len(chunks))
		return c.finish(mode, gen.Text, chunks, false), nil

	case docqa.GenerateOverloaded:
		st = stateFallback
		logger.Info("generation overloaded, retrying in degraded document-only mode", "state", string(st))
		return c.degradedRetry(ctx, logger, question, chunks)

	default:
		logger.Error(gen.Err, "generation failed", "state", string(st))
		return Result{Answer: OverloadApology, Sources: []docqa.SourceRef{}}, nil
	}
}

// degradedRetry is the single automatic retry after an overload: document-only
// prompt, visible degraded notice on success, fixed apology on any further
// failure. Raw capability errors never reach the user.
func (c *Controller) degradedRetry(ctx context.Context, logger logr.Logger, question string, chunks []docqa.ScoredChunk) (Result, error) {
	prompt, err := buildPrompt(ModeDocumentOnly, chunks, question)
	if err != nil {
		return Result{}, err
	}

	gen := c.generator.Generate(ctx, prompt)
	if gen.Status != docqa.GenerateOK {
		logger.Error(gen.Err, "degraded retry failed")
		return Result{Answer: OverloadApology, Sources: []docqa.SourceRef{}}, nil
	}

	res := c.finish(ModeDocumentOnly, gen.Text, chunks, true)
	res.Answer = DegradedNoticePrefix + res.Answer
	return res, nil
}

// finish applies the mode's citation rules to a successful generation. In
// document-only mode the literal refusal phrase suppresses all citations;
// otherwise sources are attached whenever retrieval produced context.
func (c *Controller) finish(mode Mode, text string, chunks []docqa.ScoredChunk, degraded bool) Result {
	if mode == ModeDocumentOnly && strings.TrimSpace(text) == RefusalPhrase {
		return Result{Answer: RefusalPhrase, Sources: []docqa.SourceRef{}, Degraded: degraded}
	}
	return Result{Answer: text, Sources: sourcesFor(chunks), Degraded: degraded}
}

// sourcesFor converts ranked chunks to deduplicated citations, preserving
// rank order.
func sourcesFor(chunks []docqa.ScoredChunk) []docqa.SourceRef {
	seen := make(map[docqa.SourceRef]struct{}, len(chunks))
	refs := make([]docqa.SourceRef, 0, len(chunks))
	for _, sc := range chunks {
		ref := docqa.SourceRef{Source: sc.Chunk.Meta.Source, Position: sc.Chunk.Meta.Label()}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
