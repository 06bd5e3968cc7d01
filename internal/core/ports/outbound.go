package ports

import (
	"context"
	"io"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// TextbookRepository persists and reads textbook state.
type TextbookRepository interface {
	Create(ctx context.Context, tb *domain.Textbook) error
	GetByID(ctx context.Context, id string) (*domain.Textbook, error)
	List(ctx context.Context) ([]domain.Textbook, error)
	UpdateStatus(ctx context.Context, id string, status domain.TextbookStatus, errMessage string) error
	SaveIndexStats(ctx context.Context, id string, pageCount, chunkCount int) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes textbook ingestion events.
type MessageQueue interface {
	PublishTextbookIngested(ctx context.Context, textbookID string) error
	SubscribeTextbookIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// Extractor yields ordered page records for a stored textbook.
type Extractor interface {
	ExtractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error)
}

// EmbeddingProvider builds vectors for chunk and query text.
// Deterministic for a fixed model and input.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbor search over chunk embeddings.
// Search results are descending by similarity.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error)
	SearchFiltered(ctx context.Context, vector []float32, k int, allowedIDs []string) ([]domain.ScoredID, error)
	Remove(ctx context.Context, ids []string) error
}

// KeywordIndex ranks chunks by lexical relevance. Index is a full
// rebuild that replaces the prior index; a concurrent Search must never
// observe a partially built index.
type KeywordIndex interface {
	Index(chunks []domain.Chunk)
	Search(query string, k int) []domain.ScoredID
}

// ReportWriter renders a post-indexing chunk inventory for operators.
type ReportWriter interface {
	WriteIndexReport(ctx context.Context, tb *domain.Textbook, chunks []domain.Chunk) (string, error)
}

// ChunkStore persists chunk records and serves metadata lookups.
type ChunkStore interface {
	Put(ctx context.Context, chunks []domain.Chunk) error
	Get(ctx context.Context, id string) (*domain.Chunk, error)
	Filter(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) ([]string, error)
}
