// Package pdf extracts per-page text from stored PDF textbooks.
package pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// ExtractPages reads the stored PDF and yields one record per non-empty page.
// The pdf library needs a seekable file of known size, so the stored object
// is spooled to a temp file first.
func (e *Extractor) ExtractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error) {
	reader, err := e.storage.Open(ctx, tb.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source pdf: %w", err)
	}
	defer reader.Close()

	tmpPath, err := spoolToTemp(reader)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	return extractPages(ctx, tmpPath)
}

func spoolToTemp(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "mathrag-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("spool pdf to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

func extractPages(ctx context.Context, path string) ([]domain.PageRecord, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]domain.PageRecord, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageRecord{
			PageNumber: i,
			Text:       text,
		})
	}
	return pages, nil
}
