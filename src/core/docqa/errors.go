package docqa

import "errors"

var (
	// ErrUnsupportedFormat marks a file whose declared format has no parser.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyChunkSet is returned when a retriever is built over zero chunks.
	ErrEmptyChunkSet = errors.New("empty chunk set")

	// ErrMissingCredentials is returned when a required external capability
	// has no credentials configured. Reported at build time, never deferred
	// to query time.
	ErrMissingCredentials = errors.New("missing required credentials")

	// ErrIndexBuild wraps embedding-capability failures during index
	// construction. No partial index is ever installed.
	ErrIndexBuild = errors.New("index build failed")

	// ErrNoIndex is returned when a query arrives before any document batch
	// has been ingested.
	ErrNoIndex = errors.New("no active document index")

	// ErrRerank wraps re-ranking capability failures at query time. Rank
	// quality is a correctness property, so this is surfaced rather than
	// silently downgraded to fusion order.
	ErrRerank = errors.New("rerank failed")

	// ErrEmbeddingModelMismatch is returned when a persisted semantic index
	// was built with a different embedding model than the one configured.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)
