package keyword

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/tutorly/mathrag/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Index is an in-memory BM25 Okapi index over the chunk corpus. Index
// swaps a fully built snapshot in atomically; readers always see either
// the old corpus or the new one, never a half-built state.
type Index struct {
	snapshot atomic.Pointer[bm25Snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.snapshot.Store(buildSnapshot(nil))
	return idx
}

type bm25Doc struct {
	id     string
	tf     map[string]float64
	length float64
}

type bm25Snapshot struct {
	docs   []bm25Doc
	df     map[string]int
	avgLen float64
}

// Index rebuilds the whole index from the given corpus and swaps it in.
func (i *Index) Index(chunks []domain.Chunk) {
	i.snapshot.Store(buildSnapshot(chunks))
}

func buildSnapshot(chunks []domain.Chunk) *bm25Snapshot {
	s := &bm25Snapshot{
		docs: make([]bm25Doc, 0, len(chunks)),
		df:   make(map[string]int),
	}

	var totalLen float64
	for _, c := range chunks {
		doc := bm25Doc{id: c.ID, tf: make(map[string]float64)}
		for _, tok := range Tokenize(c.Text) {
			doc.tf[tok]++
			doc.length++
		}
		if doc.length == 0 {
			continue
		}
		for tok := range doc.tf {
			s.df[tok]++
		}
		totalLen += doc.length
		s.docs = append(s.docs, doc)
	}

	if len(s.docs) > 0 {
		s.avgLen = totalLen / float64(len(s.docs))
	}
	return s
}

// Search scores the corpus against the query and returns up to k
// positive-scoring candidates, descending. Ties break on corpus order.
func (i *Index) Search(query string, k int) []domain.ScoredID {
	s := i.snapshot.Load()
	if len(s.docs) == 0 || k <= 0 {
		return nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	type hit struct {
		pos   int
		score float64
	}
	var hits []hit
	for pos, doc := range s.docs {
		score := s.scoreDoc(doc, terms)
		if score > 0 {
			hits = append(hits, hit{pos: pos, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		return hits[a].pos < hits[b].pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]domain.ScoredID, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.ScoredID{ChunkID: s.docs[h.pos].id, Score: h.score})
	}
	return out
}

func (s *bm25Snapshot) scoreDoc(doc bm25Doc, terms []string) float64 {
	var score float64
	n := float64(len(s.docs))
	for _, term := range terms {
		tf := doc.tf[term]
		if tf == 0 {
			continue
		}
		df := float64(s.df[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := bm25K1 * (1 - bm25B + bm25B*doc.length/s.avgLen)
		score += idf * (tf * (bm25K1 + 1)) / (tf + norm)
	}
	return score
}

// Tokenize lowercases and splits on whitespace. Indexing and querying
// share this exact split, so punctuation stays attached to its term on
// both sides.
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil
	}
	return fields
}
