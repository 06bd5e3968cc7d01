package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

// perNumberLimit caps how many chunks one number contributes to a
// range query, so "examples 2 to 5" returns a spread rather than every
// part of example 2.
const perNumberLimit = 2

// RetrievalPipeline is the inbound search entrypoint. It classifies
// the query, routes numbered example lookups to exact metadata
// matching, and hands everything else to hybrid retrieval with
// intent-driven filtering.
type RetrievalPipeline struct {
	classifier *QueryClassifier
	retriever  *HybridRetriever
	store      ports.ChunkStore
	logger     *slog.Logger
}

func NewRetrievalPipeline(
	classifier *QueryClassifier,
	retriever *HybridRetriever,
	store ports.ChunkStore,
	logger *slog.Logger,
) *RetrievalPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalPipeline{
		classifier: classifier,
		retriever:  retriever,
		store:      store,
		logger:     logger,
	}
}

// Search resolves one query to at most k ranked chunks.
func (p *RetrievalPipeline) Search(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.RetrievalResult, error) {
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("empty query"))
	}
	if k <= 0 {
		k = 5
	}

	cq := p.classifier.Classify(query)
	p.logger.Debug("query_classified",
		"intent", string(cq.Intent),
		"entity", cq.EntityNumber,
		"range_start", cq.RangeStart,
		"range_end", cq.RangeEnd,
	)

	// Exact label lookups apply only to the example intent. A number
	// in an exercise or concept query is treated as ordinary text and
	// goes through hybrid retrieval.
	if cq.Intent == domain.IntentExample {
		if cq.HasRange() {
			results, err := p.searchRange(ctx, cq, k, filter)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				return results, nil
			}
			// Nothing matched the numbered span; treat it as a normal
			// query instead of returning empty-handed.
		}

		if cq.HasEntity() {
			results, err := p.searchEntity(ctx, cq, k, filter)
			if err != nil {
				return nil, err
			}
			if len(results) > 0 {
				return results, nil
			}
			return p.retriever.Retrieve(ctx, cq, k, filter)
		}
	}

	if kind, ok := domain.ContentKindForIntent(cq.Intent); ok {
		return p.searchTyped(ctx, cq, k, kind, filter)
	}

	return p.retriever.Retrieve(ctx, cq, k, filter)
}

// searchRange expands "examples 2 to 5" into per-number exact lookups,
// a couple of chunks each, concatenated in number order and truncated
// to k.
func (p *RetrievalPipeline) searchRange(ctx context.Context, cq ClassifiedQuery, k int, filter domain.ChunkFilter) ([]domain.RetrievalResult, error) {
	var results []domain.RetrievalResult
	for n := cq.RangeStart; n <= cq.RangeEnd; n++ {
		matches, err := p.exactMatches(ctx, domain.KindExample, strconv.Itoa(n), filter, perNumberLimit)
		if err != nil {
			return nil, err
		}
		results = append(results, matches...)
	}
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// searchEntity resolves "example 5" by exact label match.
func (p *RetrievalPipeline) searchEntity(ctx context.Context, cq ClassifiedQuery, k int, filter domain.ChunkFilter) ([]domain.RetrievalResult, error) {
	results, err := p.exactMatches(ctx, domain.KindExample, cq.EntityNumber, filter, k)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// searchTyped runs hybrid retrieval restricted to the intent's chunk
// kind, then backfills from the unrestricted index when the filtered
// view is too thin to be useful.
func (p *RetrievalPipeline) searchTyped(ctx context.Context, cq ClassifiedQuery, k int, kind domain.ContentKind, filter domain.ChunkFilter) ([]domain.RetrievalResult, error) {
	typedFilter := filter
	typedFilter.Kind = kind

	results, err := p.retriever.Retrieve(ctx, cq, k, typedFilter)
	if err != nil {
		return nil, err
	}
	if len(results) >= k/2 {
		return results, nil
	}

	broad, err := p.retriever.Retrieve(ctx, cq, k, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.Chunk.ID] = true
	}
	for _, r := range broad {
		if len(results) >= k {
			break
		}
		if seen[r.Chunk.ID] {
			continue
		}
		seen[r.Chunk.ID] = true
		results = append(results, r)
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// exactMatches fetches chunks whose stored label equals the requested
// number, ordered by document position for stable output.
func (p *RetrievalPipeline) exactMatches(ctx context.Context, kind domain.ContentKind, label string, filter domain.ChunkFilter, limit int) ([]domain.RetrievalResult, error) {
	f := filter
	f.Kind = kind
	f.Label = label

	chunks, err := p.store.Filter(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("exact match %s %s: %w", kind, label, err)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		if chunks[i].PageNumber != chunks[j].PageNumber {
			return chunks[i].PageNumber < chunks[j].PageNumber
		}
		return chunks[i].ID < chunks[j].ID
	})
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}

	out := make([]domain.RetrievalResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, domain.RetrievalResult{Chunk: c, Score: 1.0, Rank: len(out) + 1})
	}
	return out, nil
}
