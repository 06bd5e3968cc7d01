package domain

// ScoredID is one candidate from a single ranked search.
type ScoredID struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// RetrievalResult pairs a resolved chunk with its fused score and
// final rank. Built per query, never persisted.
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// QueryIntent is the coarse query category driving retrieval strategy.
type QueryIntent string

const (
	IntentDefinition QueryIntent = "definition"
	IntentTheorem    QueryIntent = "theorem"
	IntentFormula    QueryIntent = "formula"
	IntentExample    QueryIntent = "example"
	IntentExercise   QueryIntent = "exercise"
	IntentConcept    QueryIntent = "concept"
)

// ContentKindForIntent maps typed intents to the chunk kind they
// target. Concept and exercise intents carry no kind filter.
func ContentKindForIntent(intent QueryIntent) (ContentKind, bool) {
	switch intent {
	case IntentDefinition:
		return KindDefinition, true
	case IntentTheorem:
		return KindTheorem, true
	case IntentFormula:
		return KindFormula, true
	case IntentExample:
		return KindExample, true
	default:
		return "", false
	}
}
