package chunking

import (
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// collectionKind tags what a cross-page accumulation gathers.
type collectionKind int

const (
	collectExercise collectionKind = iota
	collectExample
	collectMiscellaneous
)

func (k collectionKind) contentKind() domain.ContentKind {
	if k == collectExample {
		return domain.KindExample
	}
	return domain.KindExercise
}

func (k collectionKind) headerWord() string {
	switch k {
	case collectExample:
		return "Example"
	case collectMiscellaneous:
		return "Miscellaneous Exercise"
	default:
		return "Exercise"
	}
}

// openCollection accumulates the body of an exercise/example/
// miscellaneous header until the next structural boundary. It exists
// only between its opening header and the flush; the Segmenter always
// flushes it before a new header starts and at end of document.
type openCollection struct {
	kind      collectionKind
	label     string
	startPage int

	parts  []string
	images []domain.PageImage
	tables []domain.PageTable
}

func newCollection(kind collectionKind, label string, startPage int) *openCollection {
	return &openCollection{kind: kind, label: label, startPage: startPage}
}

func (c *openCollection) appendText(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	c.parts = append(c.parts, trimmed)
}

func (c *openCollection) appendMedia(images []domain.PageImage, tables []domain.PageTable) {
	c.images = append(c.images, images...)
	c.tables = append(c.tables, tables...)
}

func (c *openCollection) text() string {
	return strings.Join(c.parts, "\n\n")
}

func (c *openCollection) empty() bool {
	return len(c.parts) == 0
}
