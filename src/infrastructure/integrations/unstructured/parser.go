package unstructured

import (
	"context"

	"docqa/src/core/extract"
)

// Parser adapts the partition service to the extractor's parser contract.
// One Parser instance serves every supported format; the service detects
// the file type from the upload itself.
type Parser struct {
	service *Service
}

func NewParser(service *Service) *Parser {
	return &Parser{service: service}
}

func (p *Parser) Parse(ctx context.Context, name string, data []byte) ([]extract.Segment, error) {
	elements, err := p.service.Partition(ctx, name, data)
	if err != nil {
		return nil, err
	}

	segments := make([]extract.Segment, 0, len(elements))
	for _, el := range elements {
		if el.Text == "" {
			continue
		}
		segments = append(segments, extract.Segment{Text: el.Text, Page: el.Metadata.PageNumber})
	}
	return segments, nil
}
