package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

type IngestTextbookUseCase struct {
	repo    ports.TextbookRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestTextbookUseCase(
	repo ports.TextbookRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestTextbookUseCase {
	return &IngestTextbookUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the source file, registers the textbook and enqueues
// it for indexing. The heavy chunking work happens on the worker side.
func (uc *IngestTextbookUseCase) Upload(
	ctx context.Context,
	title, filename, classLevel string,
	body io.Reader,
) (*domain.Textbook, error) {
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	tb := &domain.Textbook{
		ID:          id,
		Title:       title,
		Filename:    filename,
		ClassLevel:  classLevel,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, tb); err != nil {
		return nil, fmt.Errorf("create textbook metadata: %w", err)
	}

	if err := uc.queue.PublishTextbookIngested(ctx, tb.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return tb, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "textbook.bin"
	}
	return base
}
