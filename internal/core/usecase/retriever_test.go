package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func retrieverUnderTest(cfg RetrievalConfig, vectors *vectorIndexFake, keywords *keywordIndexFake, store *chunkStoreFake) *HybridRetriever {
	return NewHybridRetriever(cfg, &embedderFake{}, vectors, keywords, store, testLogger())
}

func TestRetrieveFusesBothBranches(t *testing.T) {
	store := newChunkStoreFake(
		domain.Chunk{ID: "a", DocumentID: "doc"},
		domain.Chunk{ID: "b", DocumentID: "doc"},
		domain.Chunk{ID: "c", DocumentID: "doc"},
	)
	vectors := &vectorIndexFake{results: scored("a", "b")}
	keywords := &keywordIndexFake{results: scored("b", "c")}

	r := retrieverUnderTest(DefaultRetrievalConfig(), vectors, keywords, store)
	results, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 3, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "b" {
		t.Fatalf("dual-branch candidate should rank first: %+v", results[0])
	}
	for i, res := range results {
		if res.Rank != i+1 {
			t.Fatalf("result %d has rank %d", i, res.Rank)
		}
	}
}

func TestRetrieveEntityQueryLowersVectorWeight(t *testing.T) {
	store := newChunkStoreFake(
		domain.Chunk{ID: "v", DocumentID: "doc"},
		domain.Chunk{ID: "k", DocumentID: "doc"},
	)
	vectors := &vectorIndexFake{results: scored("v")}
	keywords := &keywordIndexFake{results: scored("k")}
	r := retrieverUnderTest(DefaultRetrievalConfig(), vectors, keywords, store)

	concept, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 2, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if concept[0].Chunk.ID != "v" {
		t.Fatalf("conceptual query should favor the vector branch: %+v", concept)
	}

	entity, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "example 5", EntityNumber: "5"}, 2, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if entity[0].Chunk.ID != "k" {
		t.Fatalf("entity query should favor the keyword branch: %+v", entity)
	}
}

func TestRetrieveFilterRestrictsBothBranches(t *testing.T) {
	store := newChunkStoreFake(
		domain.Chunk{ID: "in", DocumentID: "doc", ClassLevel: "11"},
		domain.Chunk{ID: "out", DocumentID: "doc", ClassLevel: "12"},
	)
	vectors := &vectorIndexFake{results: scored("in", "out")}
	keywords := &keywordIndexFake{results: scored("out", "in")}
	r := retrieverUnderTest(DefaultRetrievalConfig(), vectors, keywords, store)

	results, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 5, domain.ChunkFilter{ClassLevel: "11"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "in" {
		t.Fatalf("filter leaked: %+v", results)
	}
	if len(vectors.lastAllowed) != 1 || vectors.lastAllowed[0] != "in" {
		t.Fatalf("vector branch did not receive the allowed ids: %v", vectors.lastAllowed)
	}
}

func TestRetrieveEmptyFilterMatchReturnsNothing(t *testing.T) {
	store := newChunkStoreFake(domain.Chunk{ID: "a", DocumentID: "doc", ClassLevel: "11"})
	r := retrieverUnderTest(DefaultRetrievalConfig(), &vectorIndexFake{}, &keywordIndexFake{}, store)

	results, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 5, domain.ChunkFilter{ClassLevel: "9"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestRetrieveSkipsStaleIndexEntries(t *testing.T) {
	store := newChunkStoreFake(domain.Chunk{ID: "live", DocumentID: "doc"})
	vectors := &vectorIndexFake{results: scored("ghost", "live")}
	r := retrieverUnderTest(DefaultRetrievalConfig(), vectors, &keywordIndexFake{}, store)

	results, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 5, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "live" {
		t.Fatalf("stale entry not skipped: %+v", results)
	}
	if results[0].Rank != 1 {
		t.Fatalf("ranks must stay contiguous after skips, got %d", results[0].Rank)
	}
}

func TestRetrievePropagatesVectorSearchError(t *testing.T) {
	store := newChunkStoreFake()
	vectors := &vectorIndexFake{searchErr: errors.New("qdrant down")}
	r := retrieverUnderTest(DefaultRetrievalConfig(), vectors, &keywordIndexFake{}, store)

	if _, err := r.Retrieve(context.Background(), ClassifiedQuery{Query: "sets"}, 5, domain.ChunkFilter{}); err == nil {
		t.Fatal("expected an error")
	}
}
