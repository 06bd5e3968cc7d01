// Package pagejson reads pre-extracted page dumps. Each stored object is a
// JSON document with positioned text blocks, figures and tables produced by
// an external layout-analysis step.
package pagejson

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

type pageDump struct {
	Pages []domain.PageRecord `json:"pages"`
}

// ExtractPages decodes the stored dump. Both a bare array of pages and a
// {"pages": [...]} wrapper are accepted. Pages come back ordered by page
// number with page text assembled from blocks when the flat text is absent.
func (e *Extractor) ExtractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error) {
	reader, err := e.storage.Open(ctx, tb.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open page dump: %w", err)
	}
	defer reader.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode page dump", err)
	}

	var pages []domain.PageRecord
	if err := json.Unmarshal(raw, &pages); err != nil {
		var dump pageDump
		if err := json.Unmarshal(raw, &dump); err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode page dump", err)
		}
		pages = dump.Pages
	}

	out := make([]domain.PageRecord, 0, len(pages))
	for i, page := range pages {
		if page.PageNumber == 0 {
			page.PageNumber = i + 1
		}
		if page.Text == "" {
			page.Text = joinBlocks(page.Blocks)
		}
		out = append(out, page)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PageNumber < out[j].PageNumber
	})
	return out, nil
}

func joinBlocks(blocks []domain.TextBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
