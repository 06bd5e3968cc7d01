package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// Index is an in-process cosine-similarity index. It backs local
// development and tests; production wiring uses the qdrant client.
type Index struct {
	mu      sync.RWMutex
	ids     []string
	vectors map[string][]float32
}

func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

func (i *Index) Add(_ context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors mismatch: %d/%d", len(ids), len(vectors))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for n, id := range ids {
		if _, exists := i.vectors[id]; !exists {
			i.ids = append(i.ids, id)
		}
		i.vectors[id] = vectors[n]
	}
	return nil
}

func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredID, error) {
	return i.SearchFiltered(ctx, vector, k, nil)
}

// SearchFiltered scores only the allowed ids; a nil allow-list means
// the whole index. Insertion order breaks score ties.
func (i *Index) SearchFiltered(_ context.Context, vector []float32, k int, allowedIDs []string) ([]domain.ScoredID, error) {
	if k <= 0 {
		k = 10
	}

	var allowed map[string]bool
	if allowedIDs != nil {
		allowed = make(map[string]bool, len(allowedIDs))
		for _, id := range allowedIDs {
			allowed[id] = true
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]domain.ScoredID, 0, len(i.ids))
	for _, id := range i.ids {
		if allowed != nil && !allowed[id] {
			continue
		}
		out = append(out, domain.ScoredID{ChunkID: id, Score: cosine(vector, i.vectors[id])})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (i *Index) Remove(_ context.Context, ids []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
		delete(i.vectors, id)
	}

	kept := i.ids[:0]
	for _, id := range i.ids {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	i.ids = kept
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
