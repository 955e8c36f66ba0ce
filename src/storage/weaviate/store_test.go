package weaviate_test

import (
	"regexp"
	"strings"
	"testing"

	"docqa/src/storage/weaviate"
)

// Weaviate class names must match this pattern or schema creation fails.
var classNamePattern = regexp.MustCompile(`^[A-Z][_0-9A-Za-z]*$`)

func TestBatchStoreClassPerBatch(t *testing.T) {
	a := weaviate.NewBatchStore(nil, "DocumentChunk", "nomic-embed-text")
	b := weaviate.NewBatchStore(nil, "DocumentChunk", "nomic-embed-text")

	if a.ClassName() == b.ClassName() {
		t.Fatalf("two batch stores share class %q", a.ClassName())
	}
	for _, s := range []*weaviate.Store{a, b} {
		if !strings.HasPrefix(s.ClassName(), "DocumentChunk_") {
			t.Errorf("class %q lacks the configured prefix", s.ClassName())
		}
		if !classNamePattern.MatchString(s.ClassName()) {
			t.Errorf("class %q is not a valid class name", s.ClassName())
		}
	}
}

func TestBatchStoreDefaultPrefix(t *testing.T) {
	s := weaviate.NewBatchStore(nil, "", "nomic-embed-text")
	if !strings.HasPrefix(s.ClassName(), weaviate.DefaultClassName+"_") {
		t.Errorf("class %q does not fall back to the default prefix", s.ClassName())
	}
}
