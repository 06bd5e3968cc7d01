package ports

import (
	"context"
	"io"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// TextbookIngestor is the inbound contract for upload orchestration.
type TextbookIngestor interface {
	Upload(ctx context.Context, title, filename, classLevel string, body io.Reader) (*domain.Textbook, error)
}

// TextbookIndexer is the inbound contract for asynchronous indexing.
type TextbookIndexer interface {
	IndexByID(ctx context.Context, textbookID string) error
}

// TextbookRemover deletes a textbook and all derived index state.
type TextbookRemover interface {
	DeleteByID(ctx context.Context, textbookID string) error
}

// SearchService is the inbound contract for classifier-driven retrieval.
type SearchService interface {
	Search(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.RetrievalResult, error)
}

// TextbookReader is the inbound read model for textbook metadata.
type TextbookReader interface {
	GetByID(ctx context.Context, id string) (*domain.Textbook, error)
	List(ctx context.Context) ([]domain.Textbook, error)
}
