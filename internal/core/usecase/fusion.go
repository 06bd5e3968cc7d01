package usecase

import (
	"sort"

	"github.com/tutorly/mathrag/internal/core/domain"
)

type fusedCandidate struct {
	id    string
	score float64
	order int
}

// fuseWeightedRRF merges two ranked id lists with weighted reciprocal
// rank fusion. Raw scores from either branch never mix; only ranks
// contribute, so the vector and keyword scales stay incomparable by
// construction. alpha is the vector share, 1-alpha the keyword share.
func fuseWeightedRRF(vector, keyword []domain.ScoredID, alpha float64, rankConstant int) []domain.ScoredID {
	if rankConstant <= 0 {
		rankConstant = 60
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	acc := make(map[string]*fusedCandidate, len(vector)+len(keyword))
	order := 0
	addList := func(ids []domain.ScoredID, weight float64) {
		for rank, sc := range ids {
			c, ok := acc[sc.ChunkID]
			if !ok {
				c = &fusedCandidate{id: sc.ChunkID, order: order}
				order++
				acc[sc.ChunkID] = c
			}
			c.score += weight / float64(rankConstant+rank+1)
		}
	}

	addList(vector, alpha)
	addList(keyword, 1-alpha)

	out := make([]fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, *c)
	}

	// Ties break on first-seen order, so the same input lists always
	// fuse to the same ranking.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].order < out[j].order
	})

	fused := make([]domain.ScoredID, 0, len(out))
	for _, c := range out {
		fused = append(fused, domain.ScoredID{ChunkID: c.id, Score: c.score})
	}
	return fused
}

func trimScored(ids []domain.ScoredID, limit int) []domain.ScoredID {
	if limit <= 0 || len(ids) <= limit {
		return ids
	}
	return ids[:limit]
}
