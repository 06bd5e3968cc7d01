package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func TestDeleteByIDEvictsEveryIndex(t *testing.T) {
	store := newChunkStoreFake(
		domain.Chunk{ID: "c1", DocumentID: "tb-1"},
		domain.Chunk{ID: "c2", DocumentID: "tb-1"},
		domain.Chunk{ID: "other", DocumentID: "tb-2"},
	)
	vectors := &vectorIndexFake{}
	keywords := &keywordIndexFake{}
	uc := NewDeleteTextbookUseCase(store, vectors, keywords, testLogger())

	if err := uc.DeleteByID(context.Background(), "tb-1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	if len(vectors.removedIDs) != 2 {
		t.Fatalf("expected 2 vector removals, got %v", vectors.removedIDs)
	}
	if len(keywords.indexCalls) != 1 || len(keywords.indexCalls[0]) != 1 {
		t.Fatalf("keyword index must rebuild over the survivors: %+v", keywords.indexCalls)
	}
	if len(store.chunks) != 1 {
		t.Fatalf("store still holds %d chunks", len(store.chunks))
	}
}

func TestDeleteByIDNoopWhenNothingStored(t *testing.T) {
	store := newChunkStoreFake(domain.Chunk{ID: "other", DocumentID: "tb-2"})
	vectors := &vectorIndexFake{}
	keywords := &keywordIndexFake{}
	uc := NewDeleteTextbookUseCase(store, vectors, keywords, testLogger())

	if err := uc.DeleteByID(context.Background(), "tb-1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if len(vectors.removedIDs) != 0 || len(keywords.indexCalls) != 0 {
		t.Fatal("no index work expected for an unknown textbook")
	}
}

func TestDeleteByIDVectorErrorSurfaces(t *testing.T) {
	store := newChunkStoreFake(domain.Chunk{ID: "c1", DocumentID: "tb-1"})
	uc := NewDeleteTextbookUseCase(store, &vectorIndexFake{removeErr: errors.New("qdrant down")}, &keywordIndexFake{}, testLogger())

	if err := uc.DeleteByID(context.Background(), "tb-1"); err == nil {
		t.Fatal("expected an error")
	}
}
