package answer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa/src/core/answer"
	"docqa/src/core/docqa"
)

type scriptedGenerator struct {
	results []docqa.GenerateResult
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) docqa.GenerateResult {
	g.prompts = append(g.prompts, prompt)
	i := len(g.prompts) - 1
	if i >= len(g.results) {
		return docqa.GenerateResult{Status: docqa.GenerateFailed, Err: errors.New("unscripted call")}
	}
	return g.results[i]
}

type stubRetriever struct {
	chunks []docqa.ScoredChunk
	err    error
	calls  int
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string) ([]docqa.ScoredChunk, error) {
	r.calls++
	return r.chunks, r.err
}

func ok(text string) docqa.GenerateResult {
	return docqa.GenerateResult{Status: docqa.GenerateOK, Text: text}
}

func overloaded() docqa.GenerateResult {
	return docqa.GenerateResult{Status: docqa.GenerateOverloaded, Err: errors.New("429")}
}

func pageChunk(source string, page int, content string) docqa.ScoredChunk {
	return docqa.ScoredChunk{
		Chunk: docqa.Chunk{
			Content: content,
			Meta:    docqa.Metadata{Source: source, Kind: docqa.PositionPage, Position: page},
		},
		Score: 1,
	}
}

func TestGreetingShortCircuit(t *testing.T) {
	gen := &scriptedGenerator{}
	ret := &stubRetriever{}
	ctrl := answer.NewController(gen)

	for _, greeting := range []string{"hi", "Hello", " HEY "} {
		res, err := ctrl.Ask(context.Background(), ret, greeting, answer.ModeHybrid)
		if err != nil {
			t.Fatalf("Ask(%q) returned error: %v", greeting, err)
		}
		if res.Answer != answer.GreetingReply {
			t.Errorf("Ask(%q) = %q, want greeting reply", greeting, res.Answer)
		}
		if len(res.Sources) != 0 {
			t.Errorf("greeting reply carries sources: %v", res.Sources)
		}
	}

	if ret.calls != 0 {
		t.Errorf("greeting triggered %d retrievals", ret.calls)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("greeting triggered %d generations", len(gen.prompts))
	}
}

func TestNoIndexGuidance(t *testing.T) {
	gen := &scriptedGenerator{}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), nil, "what is the revenue?", answer.ModeDocumentOnly)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.NoIndexGuidance {
		t.Errorf("Ask = %q, want upload guidance", res.Answer)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("guidance triggered %d generations", len(gen.prompts))
	}
}

func TestRetrievalFailureIsHardError(t *testing.T) {
	gen := &scriptedGenerator{}
	ret := &stubRetriever{err: errors.New("rerank quota exceeded")}
	ctrl := answer.NewController(gen)

	_, err := ctrl.Ask(context.Background(), ret, "question", answer.ModeHybrid)
	if err == nil {
		t.Fatal("expected retrieval error to propagate")
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generation ran despite retrieval failure")
	}
}

func TestDocumentOnlyRefusal(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{ok("  " + answer.RefusalPhrase + "\n")}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{pageChunk("report.pdf", 2, "irrelevant text")}}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), ret, "what is the revenue?", answer.ModeDocumentOnly)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.RefusalPhrase {
		t.Errorf("Ask = %q, want verbatim refusal phrase", res.Answer)
	}
	if len(res.Sources) != 0 {
		t.Errorf("refusal carries sources: %v", res.Sources)
	}
}

func TestAnswerCarriesSources(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{ok("Revenue was $4.2M.")}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{
		pageChunk("report.pdf", 2, "Total revenue: $4.2M"),
		pageChunk("report.pdf", 2, "another chunk from the same page"),
		pageChunk("notes.docx", 0, "context"),
	}}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), ret, "what was the total revenue?", answer.ModeDocumentOnly)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != "Revenue was $4.2M." {
		t.Errorf("Ask = %q", res.Answer)
	}

	// Duplicate (source, position) pairs collapse.
	if len(res.Sources) != 2 {
		t.Fatalf("got %d sources, want 2: %v", len(res.Sources), res.Sources)
	}
	if res.Sources[0].Source != "report.pdf" || res.Sources[0].Position != "page 2" {
		t.Errorf("first source = %+v", res.Sources[0])
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Source: report.pdf, Page/Slide: page 2") {
		t.Errorf("prompt lacks provenance block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "what was the total revenue?") {
		t.Errorf("prompt lacks the question:\n%s", prompt)
	}
}

func TestHybridModeUsesHybridPrompt(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{ok("From general knowledge.")}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{pageChunk("a.pdf", 1, "text")}}
	ctrl := answer.NewController(gen)

	if _, err := ctrl.Ask(context.Background(), ret, "off-topic question", answer.ModeHybrid); err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if !strings.Contains(gen.prompts[0], "IGNORE IT COMPLETELY") {
		t.Errorf("hybrid mode did not use the hybrid prompt:\n%s", gen.prompts[0])
	}
}

func TestOverloadedRetriesDegraded(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{
		overloaded(),
		ok("Degraded but grounded answer."),
	}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{pageChunk("a.pdf", 1, "grounding")}}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), ret, "question", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}

	if len(gen.prompts) != 2 {
		t.Fatalf("expected exactly one retry, got %d generations", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1], "based *only* on the provided document context") {
		t.Errorf("retry did not use the document-only prompt:\n%s", gen.prompts[1])
	}
	if !strings.HasPrefix(res.Answer, answer.DegradedNoticePrefix) {
		t.Errorf("degraded answer lacks notice prefix: %q", res.Answer)
	}
	if !strings.HasSuffix(res.Answer, "Degraded but grounded answer.") {
		t.Errorf("degraded answer lost its body: %q", res.Answer)
	}
	if !res.Degraded {
		t.Error("result not marked degraded")
	}
	if ret.calls != 1 {
		t.Errorf("retry re-ran retrieval %d times", ret.calls-1)
	}
}

func TestDoubleOverloadYieldsApology(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{overloaded(), overloaded()}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{pageChunk("a.pdf", 1, "text")}}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), ret, "question", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.OverloadApology {
		t.Errorf("Ask = %q, want fixed apology", res.Answer)
	}
	if len(gen.prompts) != 2 {
		t.Errorf("expected 2 generations, got %d", len(gen.prompts))
	}
}

func TestNonRetriableFailureYieldsApology(t *testing.T) {
	gen := &scriptedGenerator{results: []docqa.GenerateResult{
		{Status: docqa.GenerateFailed, Err: errors.New("model crashed")},
	}}
	ret := &stubRetriever{chunks: []docqa.ScoredChunk{pageChunk("a.pdf", 1, "text")}}
	ctrl := answer.NewController(gen)

	res, err := ctrl.Ask(context.Background(), ret, "question", answer.ModeHybrid)
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if res.Answer != answer.OverloadApology {
		t.Errorf("Ask = %q, want fixed apology", res.Answer)
	}
	if strings.Contains(res.Answer, "model crashed") {
		t.Error("raw error text leaked to the user")
	}
	if len(gen.prompts) != 1 {
		t.Errorf("non-retriable failure retried: %d generations", len(gen.prompts))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in     string
		want   answer.Mode
		wantOK bool
	}{
		{in: "document_only", want: answer.ModeDocumentOnly, wantOK: true},
		{in: " Hybrid ", want: answer.ModeHybrid, wantOK: true},
		{in: "pdf_only", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := answer.ParseMode(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
