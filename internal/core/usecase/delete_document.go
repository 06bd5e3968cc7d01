package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

// DeleteTextbookUseCase removes a textbook's chunks from every index.
// Store deletion runs first so the chunk ids to evict are known; the
// keyword rebuild runs last because its statistics span the corpus.
type DeleteTextbookUseCase struct {
	store    ports.ChunkStore
	vectors  ports.VectorIndex
	keywords ports.KeywordIndex
	logger   *slog.Logger
}

func NewDeleteTextbookUseCase(
	store ports.ChunkStore,
	vectors ports.VectorIndex,
	keywords ports.KeywordIndex,
	logger *slog.Logger,
) *DeleteTextbookUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteTextbookUseCase{
		store:    store,
		vectors:  vectors,
		keywords: keywords,
		logger:   logger,
	}
}

func (uc *DeleteTextbookUseCase) DeleteByID(ctx context.Context, textbookID string) error {
	ids, err := uc.store.DeleteByDocument(ctx, textbookID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := uc.vectors.Remove(ctx, ids); err != nil {
		return fmt.Errorf("remove vectors: %w", err)
	}

	all, err := uc.store.Filter(ctx, domain.ChunkFilter{})
	if err != nil {
		return fmt.Errorf("load corpus for keyword index: %w", err)
	}
	uc.keywords.Index(all)

	uc.logger.Info("textbook_deleted", "textbook_id", textbookID, "chunks_removed", len(ids))
	return nil
}
