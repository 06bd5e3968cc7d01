// Package plaintext handles UTF-8 text sources. Form feeds mark page
// boundaries; a file without them becomes a single page.
package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) ExtractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error) {
	reader, err := e.storage.Open(ctx, tb.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source text: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source text: %w", err)
	}

	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract plain text",
			fmt.Errorf("binary content in %s", tb.Filename))
	}

	pages := make([]domain.PageRecord, 0)
	for i, part := range strings.Split(string(raw), "\f") {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageRecord{
			PageNumber: i + 1,
			Text:       text,
		})
	}
	return pages, nil
}
