package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func indexDeps() (*repoFake, *pageExtractorFake, *chunkerFake, *chunkStoreFake, *embedderFake, *vectorIndexFake, *keywordIndexFake, *reporterFake) {
	repo := &repoFake{tb: &domain.Textbook{ID: "tb-1", ClassLevel: "11"}}
	extractor := &pageExtractorFake{pages: []domain.PageRecord{{PageNumber: 1, Text: "text"}}}
	chunker := &chunkerFake{chunks: []domain.Chunk{
		{ID: "c1", DocumentID: "tb-1", Text: "alpha"},
		{ID: "c2", DocumentID: "tb-1", Text: "beta"},
	}}
	store := newChunkStoreFake()
	embedder := &embedderFake{}
	vectors := &vectorIndexFake{}
	keywords := &keywordIndexFake{}
	reporter := &reporterFake{path: "/reports/tb-1.xlsx"}
	return repo, extractor, chunker, store, embedder, vectors, keywords, reporter
}

func TestIndexByIDSuccess(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, reporter := indexDeps()
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, reporter, testLogger())

	if err := uc.IndexByID(context.Background(), "tb-1"); err != nil {
		t.Fatalf("IndexByID: %v", err)
	}

	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing+ready status calls, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.statsSavedFor != "tb-1" || repo.statsPages != 1 || repo.statsChunks != 2 {
		t.Fatalf("unexpected index stats: %+v", repo)
	}
	if len(vectors.addedIDs) != 2 {
		t.Fatalf("expected 2 vectors indexed, got %v", vectors.addedIDs)
	}
	if len(keywords.indexCalls) != 1 || len(keywords.indexCalls[0]) != 2 {
		t.Fatalf("keyword index not rebuilt over the corpus: %+v", keywords.indexCalls)
	}
	if len(store.chunks) != 2 {
		t.Fatalf("chunks not persisted: %d", len(store.chunks))
	}
	if reporter.calls != 1 {
		t.Fatalf("report not written: %d calls", reporter.calls)
	}
}

func TestIndexByIDMarksFailedOnExtractError(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, reporter := indexDeps()
	extractor.err = errors.New("corrupt pdf")
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, reporter, testLogger())

	if err := uc.IndexByID(context.Background(), "tb-1"); err == nil {
		t.Fatal("expected an error")
	}

	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls)
	}
	if last.errMsg == "" {
		t.Fatal("failed status must carry the error message")
	}
	if len(vectors.addedIDs) != 0 {
		t.Fatalf("nothing should reach the vector index: %v", vectors.addedIDs)
	}
}

func TestIndexByIDFailsOnZeroChunks(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, reporter := indexDeps()
	chunker.chunks = nil
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, reporter, testLogger())

	err := uc.IndexByID(context.Background(), "tb-1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIndexByIDFailsOnVectorMismatch(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, reporter := indexDeps()
	embedder.vectors = [][]float32{{1}}
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, reporter, testLogger())

	if err := uc.IndexByID(context.Background(), "tb-1"); err == nil {
		t.Fatal("expected an error")
	}
	if len(vectors.addedIDs) != 0 {
		t.Fatalf("mismatched vectors must not be indexed: %v", vectors.addedIDs)
	}
}

func TestIndexByIDReportFailureIsNotFatal(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, reporter := indexDeps()
	reporter.err = errors.New("disk full")
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, reporter, testLogger())

	if err := uc.IndexByID(context.Background(), "tb-1"); err != nil {
		t.Fatalf("report failure escalated: %v", err)
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusReady {
		t.Fatalf("expected ready status, got %+v", repo.statusCalls)
	}
}

func TestIndexByIDNilReporterAllowed(t *testing.T) {
	repo, extractor, chunker, store, embedder, vectors, keywords, _ := indexDeps()
	uc := NewIndexTextbookUseCase(repo, extractor, chunker, store, embedder, vectors, keywords, nil, testLogger())

	if err := uc.IndexByID(context.Background(), "tb-1"); err != nil {
		t.Fatalf("IndexByID: %v", err)
	}
}
