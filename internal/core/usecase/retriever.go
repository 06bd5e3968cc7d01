package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tutorly/mathrag/internal/core/domain"
	"github.com/tutorly/mathrag/internal/core/ports"
)

// RetrievalConfig tunes hybrid retrieval.
type RetrievalConfig struct {
	// RankConstant damps rank differences inside RRF.
	RankConstant int
	// DefaultAlpha is the vector share for conceptual queries.
	DefaultAlpha float64
	// EntityAlpha is the vector share when the query names a numbered
	// item; exact tokens matter more than meaning there.
	EntityAlpha float64
	// RangeCap bounds how many numbered items a range query expands to.
	RangeCap int
}

// DefaultRetrievalConfig returns the retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		RankConstant: 60,
		DefaultAlpha: 0.7,
		EntityAlpha:  0.3,
		RangeCap:     10,
	}
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	out := c
	def := DefaultRetrievalConfig()
	if out.RankConstant <= 0 {
		out.RankConstant = def.RankConstant
	}
	if out.DefaultAlpha <= 0 || out.DefaultAlpha > 1 {
		out.DefaultAlpha = def.DefaultAlpha
	}
	if out.EntityAlpha <= 0 || out.EntityAlpha > 1 {
		out.EntityAlpha = def.EntityAlpha
	}
	if out.RangeCap <= 0 {
		out.RangeCap = def.RangeCap
	}
	return out
}

// HybridRetriever runs the vector and keyword branches for one query
// and fuses their rankings. It owns candidate sizing and weight choice;
// intent routing lives one level up in the pipeline.
type HybridRetriever struct {
	cfg      RetrievalConfig
	embedder ports.EmbeddingProvider
	vectors  ports.VectorIndex
	keywords ports.KeywordIndex
	store    ports.ChunkStore
	logger   *slog.Logger
}

func NewHybridRetriever(
	cfg RetrievalConfig,
	embedder ports.EmbeddingProvider,
	vectors ports.VectorIndex,
	keywords ports.KeywordIndex,
	store ports.ChunkStore,
	logger *slog.Logger,
) *HybridRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		cfg:      cfg.normalize(),
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		store:    store,
		logger:   logger,
	}
}

// Retrieve fuses both branches for a classified query and resolves the
// top k chunks. An empty result is not an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, cq ClassifiedQuery, k int, filter domain.ChunkFilter) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = 5
	}
	candidates := k * 2

	alpha := r.cfg.DefaultAlpha
	if cq.HasEntity() || cq.HasRange() {
		alpha = r.cfg.EntityAlpha
	}

	var allowed map[string]bool
	var allowedIDs []string
	if !filter.IsZero() {
		chunks, err := r.store.Filter(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("resolve filter: %w", err)
		}
		if len(chunks) == 0 {
			return nil, nil
		}
		allowed = make(map[string]bool, len(chunks))
		allowedIDs = make([]string, 0, len(chunks))
		for _, c := range chunks {
			allowed[c.ID] = true
			allowedIDs = append(allowedIDs, c.ID)
		}
	}

	// The keyword branch is in-memory and cheap; only the vector
	// branch goes off-goroutine.
	type vectorOut struct {
		ids []domain.ScoredID
		err error
	}
	vecCh := make(chan vectorOut, 1)
	go func() {
		ids, err := r.searchVectors(ctx, cq.Query, candidates, allowedIDs)
		vecCh <- vectorOut{ids: ids, err: err}
	}()

	lexical := r.keywords.Search(cq.Query, candidates)
	if allowed != nil {
		lexical = filterScored(lexical, allowed)
	}

	vec := <-vecCh
	if vec.err != nil {
		return nil, vec.err
	}

	fused := trimScored(fuseWeightedRRF(vec.ids, lexical, alpha, r.cfg.RankConstant), k)
	return r.resolve(ctx, fused)
}

func (r *HybridRetriever) searchVectors(ctx context.Context, query string, k int, allowedIDs []string) ([]domain.ScoredID, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if allowedIDs != nil {
		ids, err := r.vectors.SearchFiltered(ctx, vector, k, allowedIDs)
		if err != nil {
			return nil, fmt.Errorf("filtered vector search: %w", err)
		}
		return ids, nil
	}
	ids, err := r.vectors.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return ids, nil
}

// resolve loads chunk records for the fused ranking. Ids the store no
// longer knows are skipped and logged; a half-deleted document must not
// fail the whole query.
func (r *HybridRetriever) resolve(ctx context.Context, fused []domain.ScoredID) ([]domain.RetrievalResult, error) {
	out := make([]domain.RetrievalResult, 0, len(fused))
	for _, sc := range fused {
		chunk, err := r.store.Get(ctx, sc.ChunkID)
		if err != nil {
			if domain.IsKind(err, domain.ErrChunkNotFound) {
				r.logger.Warn("stale_index_entry_skipped", "chunk_id", sc.ChunkID)
				continue
			}
			return nil, fmt.Errorf("resolve chunk %s: %w", sc.ChunkID, err)
		}
		out = append(out, domain.RetrievalResult{
			Chunk: *chunk,
			Score: sc.Score,
			Rank:  len(out) + 1,
		})
	}
	return out, nil
}

func filterScored(ids []domain.ScoredID, allowed map[string]bool) []domain.ScoredID {
	out := ids[:0:0]
	for _, sc := range ids {
		if allowed[sc.ChunkID] {
			out = append(out, sc)
		}
	}
	return out
}
