package domain

import "time"

// ContentKind classifies what a chunk contains.
type ContentKind string

const (
	KindText       ContentKind = "text"
	KindDefinition ContentKind = "definition"
	KindTheorem    ContentKind = "theorem"
	KindProof      ContentKind = "proof"
	KindDerivation ContentKind = "derivation"
	KindExample    ContentKind = "example"
	KindExercise   ContentKind = "exercise"
	KindSolution   ContentKind = "solution"
	KindTable      ContentKind = "table"
	KindImage      ContentKind = "image"
	KindFormula    ContentKind = "formula"
)

// StructuralContext is the chapter/section position a chunk was created
// under. It is threaded forward through the page walk and never
// rewritten for chunks already emitted.
type StructuralContext struct {
	ChapterNumber int    `json:"chapter_number"`
	ChapterName   string `json:"chapter_name"`
	SectionName   string `json:"section_name,omitempty"`
}

// Equation is a LaTeX equation lifted out of chunk text.
type Equation struct {
	ID        string `json:"equation_id"`
	LaTeX     string `json:"latex"`
	Original  string `json:"original_text,omitempty"`
	Inline    bool   `json:"is_inline"`
	Multiline bool   `json:"is_multiline"`
}

// Chunk is a retrievable content unit. Created once by the chunking
// pass and immutable afterward.
type Chunk struct {
	ID         string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ClassLevel string `json:"class_level"`

	Context StructuralContext `json:"context"`
	Kind    ContentKind       `json:"content_kind"`

	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`

	Equations []Equation  `json:"equations,omitempty"`
	Images    []PageImage `json:"images,omitempty"`
	Tables    []PageTable `json:"tables,omitempty"`

	// Label is the numeric header label ("3.2", "5") for exercise and
	// example chunks; empty otherwise.
	Label string `json:"label,omitempty"`

	CharCount   int       `json:"char_count"`
	TokenCount  int       `json:"token_count"`
	MathDensity float64   `json:"math_density"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChunkFilter selects chunks by metadata. Zero-valued fields match
// everything.
type ChunkFilter struct {
	DocumentID    string
	ClassLevel    string
	ChapterNumber int
	Kind          ContentKind
	Label         string
}

// Matches reports whether the chunk satisfies every set field.
func (f ChunkFilter) Matches(c Chunk) bool {
	if f.DocumentID != "" && c.DocumentID != f.DocumentID {
		return false
	}
	if f.ClassLevel != "" && c.ClassLevel != f.ClassLevel {
		return false
	}
	if f.ChapterNumber != 0 && c.Context.ChapterNumber != f.ChapterNumber {
		return false
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.Label != "" && c.Label != f.Label {
		return false
	}
	return true
}

// IsZero reports whether no filter field is set.
func (f ChunkFilter) IsZero() bool {
	return f == ChunkFilter{}
}
