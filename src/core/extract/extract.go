package extract

import (
	"context"
	"sort"
	"strings"

	"docqa/src/core/docqa"
	"docqa/src/infrastructure/log"
)

// Segment is one raw piece of text as returned by a parser capability,
// tagged with the 1-based page (or slide) it came from. Parsers that cannot
// attribute a page report 0.
type Segment struct {
	Text string
	Page int
}

// Parser converts raw file bytes of one format into text segments. A parser
// failure is scoped to its file and never aborts the batch.
type Parser interface {
	Parse(ctx context.Context, name string, data []byte) ([]Segment, error)
}

// Extractor turns uploaded files into provenance-tagged text units using a
// per-format parser registry.
type Extractor struct {
	parsers map[docqa.Format]Parser
}

func NewExtractor(parsers map[docqa.Format]Parser) *Extractor {
	return &Extractor{parsers: parsers}
}

// Extract processes every file in the batch. Corrupt files and unknown
// formats are skipped with a recorded error; remaining files still produce
// units. Units with empty content are discarded.
func (e *Extractor) Extract(ctx context.Context, files []docqa.File) ([]docqa.TextUnit, []docqa.FileError) {
	var units []docqa.TextUnit
	var fileErrs []docqa.FileError

	for _, f := range files {
		parser, ok := e.parsers[f.Format]
		if !ok {
			log.Info("skipping file with unsupported format", "file", f.Name, "format", string(f.Format))
			fileErrs = append(fileErrs, docqa.FileError{Name: f.Name, Err: docqa.ErrUnsupportedFormat.Error()})
			continue
		}

		segments, err := parser.Parse(ctx, f.Name, f.Data)
		if err != nil {
			log.Error(err, "failed to parse file", "file", f.Name, "format", string(f.Format))
			fileErrs = append(fileErrs, docqa.FileError{Name: f.Name, Err: err.Error()})
			continue
		}

		units = append(units, unitsFor(f, segments)...)
	}

	return units, fileErrs
}

// unitsFor applies the per-format grouping rule: PDF and PPTX yield one unit
// per page/slide, DOCX collapses to a single unit with paragraphs joined by
// line breaks and empty paragraphs dropped.
func unitsFor(f docqa.File, segments []Segment) []docqa.TextUnit {
	switch f.Format {
	case docqa.FormatDOCX:
		var paragraphs []string
		for _, seg := range segments {
			if t := strings.TrimSpace(seg.Text); t != "" {
				paragraphs = append(paragraphs, t)
			}
		}
		if len(paragraphs) == 0 {
			return nil
		}
		return []docqa.TextUnit{{
			Content: strings.Join(paragraphs, "\n"),
			Meta:    docqa.Metadata{Source: f.Name, Kind: docqa.PositionNone},
		}}

	case docqa.FormatPDF, docqa.FormatPPTX:
		kind := docqa.PositionPage
		if f.Format == docqa.FormatPPTX {
			kind = docqa.PositionSlide
		}
		return pagedUnits(f.Name, kind, segments)
	}
	return nil
}

func pagedUnits(source string, kind docqa.PositionKind, segments []Segment) []docqa.TextUnit {
	byPage := make(map[int][]string)
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		byPage[seg.Page] = append(byPage[seg.Page], seg.Text)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	units := make([]docqa.TextUnit, 0, len(pages))
	for _, p := range pages {
		units = append(units, docqa.TextUnit{
			Content: strings.Join(byPage[p], "\n"),
			Meta:    docqa.Metadata{Source: source, Kind: kind, Position: p},
		})
	}
	return units
}
