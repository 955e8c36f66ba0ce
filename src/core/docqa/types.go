package docqa

import "fmt"

// Format identifies a supported upload format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
)

// ParseFormat maps a user-supplied format string (or file extension) to a
// Format. The boolean reports whether the format is supported.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatPDF, FormatDOCX, FormatPPTX:
		return Format(s), true
	}
	return "", false
}

// File is one uploaded document as handed to Ingest.
type File struct {
	Name   string
	Format Format
	Data   []byte
}

// PositionKind tells what a unit's position number counts.
type PositionKind string

const (
	PositionNone  PositionKind = ""
	PositionPage  PositionKind = "page"
	PositionSlide PositionKind = "slide"
)

// Metadata is the provenance carried by every text unit and chunk.
type Metadata struct {
	Source   string
	Kind     PositionKind
	Position int // 1-based page/slide number; 0 when Kind is PositionNone
}

// Label renders the position for display, e.g. "page 2" or "slide 5".
// Units without a position return an empty label.
func (m Metadata) Label() string {
	if m.Kind == PositionNone || m.Position <= 0 {
		return ""
	}
	return fmt.Sprintf("%s %d", m.Kind, m.Position)
}

// TextUnit is one atomic extracted piece of document text. PDF and PPTX
// files yield one unit per page/slide; DOCX yields a single unit.
type TextUnit struct {
	Content string
	Meta    Metadata
}

// Chunk is a bounded slice of a single TextUnit's content. Overlap holds the
// characters shared with the preceding chunk of the same unit, so that
// concatenating chunks with their overlaps stripped reconstructs the unit.
type Chunk struct {
	Content string
	Overlap string
	Meta    Metadata
}

// Key is the chunk identity used to deduplicate fused retrieval candidates.
func (c Chunk) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", c.Meta.Source, c.Meta.Kind, c.Meta.Position, c.Content)
}

// ScoredChunk pairs a chunk with a relevance score. Retrieval results are
// ordered by descending score, ties broken by first-seen input order.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RankedDocument is one entry of a re-ranker response: the index into the
// submitted candidate list plus the re-ranker's relevance score.
type RankedDocument struct {
	Index int
	Score float64
}

// SourceRef is a citation attached to an answer.
type SourceRef struct {
	Source   string `json:"source"`
	Position string `json:"position,omitempty"`
}

// FileError records a per-file ingestion failure. The batch continues
// without the failed file.
type FileError struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// BatchResult summarizes one ingest call.
type BatchResult struct {
	ChunkCount int         `json:"chunk_count"`
	FileErrors []FileError `json:"file_errors,omitempty"`
}

// GenerateStatus tags the outcome of a generation-capability call.
type GenerateStatus int

const (
	GenerateOK GenerateStatus = iota
	GenerateOverloaded
	GenerateFailed
)

// GenerateResult is the typed outcome of a generation call. The answer
// controller branches on Status instead of inspecting raw errors.
type GenerateResult struct {
	Status GenerateStatus
	Text   string
	Err    error
}
