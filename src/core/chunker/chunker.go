package chunker

import (
	"fmt"
	"unicode"

	"docqa/src/core/docqa"
)

const (
	DefaultMaxChunkSize = 1200
	DefaultOverlapSize  = 250
)

// Config controls the splitter. OverlapSize must be smaller than
// MaxChunkSize so every chunk carries novel content.
type Config struct {
	MaxChunkSize int
	OverlapSize  int
}

func DefaultConfig() Config {
	return Config{
		MaxChunkSize: DefaultMaxChunkSize,
		OverlapSize:  DefaultOverlapSize,
	}
}

func (c Config) validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.MaxChunkSize)
	}
	if c.OverlapSize < 0 || c.OverlapSize >= c.MaxChunkSize {
		return fmt.Errorf("overlap size %d must be in [0, %d)", c.OverlapSize, c.MaxChunkSize)
	}
	return nil
}

// Split turns text units into overlapping chunks. Each chunk is a contiguous
// rune slice of its unit, at most MaxChunkSize runes long, and records the
// prefix it shares with the preceding chunk of the same unit. Chunking never
// spans two units. Concatenating a unit's chunks with each overlap stripped
// reproduces the unit content exactly.
func Split(units []docqa.TextUnit, cfg Config) ([]docqa.Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var chunks []docqa.Chunk
	for _, unit := range units {
		chunks = append(chunks, splitUnit(unit, cfg)...)
	}
	return chunks, nil
}

func splitUnit(unit docqa.TextUnit, cfg Config) []docqa.Chunk {
	runes := []rune(unit.Content)
	if len(runes) == 0 {
		return nil
	}

	var chunks []docqa.Chunk
	novelStart := 0
	for novelStart < len(runes) {
		start := novelStart - cfg.OverlapSize
		if start < 0 {
			start = 0
		}

		end := start + cfg.MaxChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, novelStart, end)
		}

		chunks = append(chunks, docqa.Chunk{
			Content: string(runes[start:end]),
			Overlap: string(runes[start:novelStart]),
			Meta:    unit.Meta,
		})
		novelStart = end
	}
	return chunks
}

// cutPoint picks where to end the current window. It prefers a paragraph
// break, then a sentence end, then a line break, then a word boundary, and
// only falls back to a hard character cut when no boundary exists after the
// novel region. The returned index is always in (novelStart, limit].
func cutPoint(runes []rune, novelStart, limit int) int {
	floor := novelStart + 1

	if at := lastParagraphBreak(runes, floor, limit); at > 0 {
		return at
	}
	if at := lastSentenceEnd(runes, floor, limit); at > 0 {
		return at
	}
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	for i := limit - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

// lastParagraphBreak finds the end of the last "\n\n" occurrence whose
// trailing newline sits before limit and at or after floor.
func lastParagraphBreak(runes []rune, floor, limit int) int {
	for i := limit - 1; i >= floor; i-- {
		if runes[i] == '\n' && i-1 >= 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return -1
}

// lastSentenceEnd finds the position just past the last sentence terminator
// that is followed by whitespace.
func lastSentenceEnd(runes []rune, floor, limit int) int {
	for i := limit - 1; i >= floor; i-- {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		switch runes[i-1] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return -1
}
