package plaintext

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/tutorly/mathrag/internal/core/domain"
)

type storageFake struct {
	body string
}

func (s *storageFake) Save(ctx context.Context, key string, r io.Reader) error {
	return nil
}

func (s *storageFake) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestExtractPagesSplitsOnFormFeed(t *testing.T) {
	storage := &storageFake{body: "first page\fsecond page\f\f  "}

	pages, err := NewExtractor(storage).ExtractPages(context.Background(), &domain.Textbook{StoragePath: "a.txt"})
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Text != "first page" || pages[0].PageNumber != 1 {
		t.Errorf("unexpected first page %+v", pages[0])
	}
	if pages[1].Text != "second page" || pages[1].PageNumber != 2 {
		t.Errorf("unexpected second page %+v", pages[1])
	}
}

func TestExtractPagesSinglePageWithoutFormFeed(t *testing.T) {
	storage := &storageFake{body: "just one page"}

	pages, err := NewExtractor(storage).ExtractPages(context.Background(), &domain.Textbook{StoragePath: "a.txt"})
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "just one page" {
		t.Errorf("unexpected pages %+v", pages)
	}
}

func TestExtractPagesRejectsBinary(t *testing.T) {
	storage := &storageFake{body: string([]byte{0xff, 0xfe, 0x00, 0x80})}

	_, err := NewExtractor(storage).ExtractPages(context.Background(), &domain.Textbook{StoragePath: "a.txt", Filename: "a.txt"})
	if err == nil {
		t.Fatal("expected error for binary content")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}
}
