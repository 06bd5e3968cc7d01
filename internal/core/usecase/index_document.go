package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

// DocumentChunker segments extracted pages into chunk records.
type DocumentChunker interface {
	ChunkDocument(pages []domain.PageRecord, documentID, classLevel string) []domain.Chunk
}

// IndexTextbookUseCase drives the worker-side pipeline: extract pages,
// chunk, persist, embed, index and rebuild the keyword index. The
// keyword rebuild covers the whole corpus, not just the new document,
// because BM25 statistics are global.
type IndexTextbookUseCase struct {
	repo     ports.TextbookRepository
	extract  ports.Extractor
	chunker  DocumentChunker
	store    ports.ChunkStore
	embedder ports.EmbeddingProvider
	vectors  ports.VectorIndex
	keywords ports.KeywordIndex
	reporter ports.ReportWriter
	logger   *slog.Logger
}

func NewIndexTextbookUseCase(
	repo ports.TextbookRepository,
	extract ports.Extractor,
	chunker DocumentChunker,
	store ports.ChunkStore,
	embedder ports.EmbeddingProvider,
	vectors ports.VectorIndex,
	keywords ports.KeywordIndex,
	reporter ports.ReportWriter,
	logger *slog.Logger,
) *IndexTextbookUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexTextbookUseCase{
		repo:     repo,
		extract:  extract,
		chunker:  chunker,
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		reporter: reporter,
		logger:   logger,
	}
}

func (uc *IndexTextbookUseCase) IndexByID(ctx context.Context, textbookID string) error {
	if err := uc.markStatus(ctx, textbookID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	tb, pages, chunks, err := uc.indexPipeline(ctx, textbookID)
	if err != nil {
		if failErr := uc.markFailed(ctx, textbookID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveIndexStats(ctx, tb.ID, len(pages), len(chunks)); err != nil {
		if failErr := uc.markFailed(ctx, textbookID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save index stats: %w", err)
	}

	if err := uc.markStatus(ctx, textbookID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *IndexTextbookUseCase) indexPipeline(ctx context.Context, textbookID string) (*domain.Textbook, []domain.PageRecord, []domain.Chunk, error) {
	tb, err := uc.repo.GetByID(ctx, textbookID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch textbook by id: %w", err)
	}

	pages, err := uc.extractPages(ctx, tb)
	if err != nil {
		return nil, nil, nil, err
	}

	chunks := uc.chunker.ChunkDocument(pages, tb.ID, tb.ClassLevel)
	if len(chunks) == 0 {
		return nil, nil, nil, domain.WrapError(domain.ErrInvalidInput, "chunk textbook", errors.New("chunking produced zero chunks"))
	}

	if err := uc.store.Put(ctx, chunks); err != nil {
		return nil, nil, nil, fmt.Errorf("persist chunks: %w", err)
	}

	if err := uc.embedAndIndex(ctx, chunks); err != nil {
		return nil, nil, nil, err
	}

	if err := uc.rebuildKeywordIndex(ctx); err != nil {
		return nil, nil, nil, err
	}

	uc.writeReport(ctx, tb, chunks)

	return tb, pages, chunks, nil
}

func (uc *IndexTextbookUseCase) extractPages(ctx context.Context, tb *domain.Textbook) ([]domain.PageRecord, error) {
	pages, err := uc.extract.ExtractPages(ctx, tb)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract pages", errors.New("no pages extracted"))
	}
	return pages, nil
}

func (uc *IndexTextbookUseCase) embedAndIndex(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ID
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectors.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

// rebuildKeywordIndex reloads the whole chunk corpus and swaps in a
// freshly built lexical index.
func (uc *IndexTextbookUseCase) rebuildKeywordIndex(ctx context.Context) error {
	all, err := uc.store.Filter(ctx, domain.ChunkFilter{})
	if err != nil {
		return fmt.Errorf("load corpus for keyword index: %w", err)
	}
	uc.keywords.Index(all)
	return nil
}

// writeReport is best-effort; a failed inventory report never fails
// the indexing run.
func (uc *IndexTextbookUseCase) writeReport(ctx context.Context, tb *domain.Textbook, chunks []domain.Chunk) {
	if uc.reporter == nil {
		return
	}
	path, err := uc.reporter.WriteIndexReport(ctx, tb, chunks)
	if err != nil {
		uc.logger.Warn("index_report_failed", "textbook_id", tb.ID, "error", err)
		return
	}
	uc.logger.Info("index_report_written", "textbook_id", tb.ID, "path", path)
}

func (uc *IndexTextbookUseCase) markStatus(ctx context.Context, textbookID string, status domain.TextbookStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, textbookID, status, errMessage)
}

func (uc *IndexTextbookUseCase) markFailed(ctx context.Context, textbookID string, indexErr error) error {
	if indexErr == nil {
		return nil
	}
	return uc.markStatus(ctx, textbookID, domain.StatusFailed, indexErr.Error())
}
