package memory

import (
	"context"
	"testing"
)

func TestSearchOrdersByCosineSimilarity(t *testing.T) {
	idx := NewIndex()
	err := idx.Add(context.Background(),
		[]string{"aligned", "orthogonal", "opposite"},
		[][]float32{{1, 0}, {0, 1}, {-1, 0}},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(got))
	}
	if got[0].ChunkID != "aligned" || got[2].ChunkID != "opposite" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %+v", got)
	}
}

func TestSearchFilteredRestrictsCandidates(t *testing.T) {
	idx := NewIndex()
	_ = idx.Add(context.Background(),
		[]string{"a", "b"},
		[][]float32{{1, 0}, {0.9, 0.1}},
	)

	got, err := idx.SearchFiltered(context.Background(), []float32{1, 0}, 5, []string{"b"})
	if err != nil {
		t.Fatalf("SearchFiltered: %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != "b" {
		t.Fatalf("filter leaked: %+v", got)
	}
}

func TestRemoveEvictsIDs(t *testing.T) {
	idx := NewIndex()
	_ = idx.Add(context.Background(), []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})

	if err := idx.Remove(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got, _ := idx.Search(context.Background(), []float32{1, 0}, 5)
	if len(got) != 1 || got[0].ChunkID != "b" {
		t.Fatalf("removal incomplete: %+v", got)
	}
}

func TestAddUpsertsExistingID(t *testing.T) {
	idx := NewIndex()
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{0, 1}})
	_ = idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})

	got, _ := idx.Search(context.Background(), []float32{1, 0}, 5)
	if len(got) != 1 {
		t.Fatalf("duplicate id after upsert: %+v", got)
	}
	if got[0].Score < 0.99 {
		t.Fatalf("vector not replaced: %+v", got)
	}
}

func TestAddRejectsMismatchedLengths(t *testing.T) {
	idx := NewIndex()
	if err := idx.Add(context.Background(), []string{"a"}, nil); err == nil {
		t.Fatal("expected an error")
	}
}
