package chunking

import (
	"strings"
	"testing"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func testSegmenter(t *testing.T, opts ...Option) *Segmenter {
	t.Helper()
	return NewSegmenter(DefaultConfig(), testLogger(), opts...)
}

func TestChunkDocumentClosesExerciseAtMiscellaneousBoundary(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "EXERCISE 3.1\n1. Solve x."},
		{PageNumber: 2, Text: "MISCELLANEOUS EXERCISE\n1. Harder problems."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")

	var labeled []domain.Chunk
	for _, c := range chunks {
		if c.Kind == domain.KindExercise && c.Label == "3.1" {
			labeled = append(labeled, c)
		}
	}
	if len(labeled) != 1 {
		t.Fatalf("expected exactly one exercise chunk labeled 3.1, got %d", len(labeled))
	}
	if !strings.Contains(labeled[0].Text, "Solve x.") {
		t.Fatalf("exercise chunk missing body: %q", labeled[0].Text)
	}
	if strings.Contains(labeled[0].Text, "MISCELLANEOUS") {
		t.Fatalf("exercise chunk crossed the miscellaneous boundary: %q", labeled[0].Text)
	}
}

func TestChunkDocumentHeaderlessPageBecomesStandaloneText(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 4, Text: "Plain prose about limits.\n\nMore prose."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 standalone chunk, got %d", len(chunks))
	}
	if chunks[0].Kind != domain.KindText {
		t.Fatalf("expected text kind, got %s", chunks[0].Kind)
	}
	if chunks[0].PageNumber != 4 {
		t.Fatalf("expected page 4, got %d", chunks[0].PageNumber)
	}
}

func TestChunkDocumentTheoremHeaderDoesNotOpenCollection(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "Theorem 5.1\nEvery bounded sequence has a convergent subsequence."},
		{PageNumber: 2, Text: "Unrelated continuation prose on the next page."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "12")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 standalone chunks, got %d", len(chunks))
	}
	if chunks[0].Kind != domain.KindTheorem {
		t.Fatalf("expected theorem kind for page 1, got %s", chunks[0].Kind)
	}
	if strings.Contains(chunks[0].Text, "Unrelated continuation") {
		t.Fatalf("theorem text absorbed the next page: %q", chunks[0].Text)
	}
}

func TestChunkDocumentExampleCollectionSpansPages(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "Example 7\nFind the derivative of sin x."},
		{PageNumber: 2, Text: "Continuing the working from the previous page."},
		{PageNumber: 3, Text: "EXERCISE 2.1\n1. Differentiate cos x."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "12")

	var example *domain.Chunk
	for i := range chunks {
		if chunks[i].Kind == domain.KindExample {
			example = &chunks[i]
		}
	}
	if example == nil {
		t.Fatalf("expected an example chunk, got %+v", chunks)
	}
	if example.Label != "7" {
		t.Fatalf("expected example label 7, got %q", example.Label)
	}
	if !strings.Contains(example.Text, "Continuing the working") {
		t.Fatalf("example did not span pages: %q", example.Text)
	}
	if strings.Contains(example.Text, "Differentiate cos x") {
		t.Fatalf("example absorbed the next exercise: %q", example.Text)
	}
	if example.PageNumber != 1 {
		t.Fatalf("expected collection start page 1, got %d", example.PageNumber)
	}
}

func TestChunkDocumentChapterContextMonotoneAndForwardOnly(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "Prose before any chapter."},
		{PageNumber: 2, Text: "CHAPTER 3: Trigonometric Functions\nChapter prose."},
		{PageNumber: 3, Text: "CHAPTER 1\nStray back-reference should not rewind."},
		{PageNumber: 4, Text: "CHAPTER 4: Complex Numbers\nMore prose."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].Context.ChapterNumber != 0 {
		t.Fatalf("pre-chapter chunk should keep the initial context, got %d", chunks[0].Context.ChapterNumber)
	}
	prev := 0
	for _, c := range chunks {
		if c.Context.ChapterNumber < prev {
			t.Fatalf("chapter numbers went backwards: %d after %d", c.Context.ChapterNumber, prev)
		}
		prev = c.Context.ChapterNumber
	}
	last := chunks[len(chunks)-1]
	if last.Context.ChapterNumber != 4 || last.Context.ChapterName != "Complex Numbers" {
		t.Fatalf("unexpected final context: %+v", last.Context)
	}
}

func TestChunkDocumentPageNumbersWithinRange(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "Intro prose."},
		{PageNumber: 2, Text: "EXERCISE 1.1\n1. Something."},
		{PageNumber: 3, Text: "More of the exercise."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	for _, c := range chunks {
		if c.PageNumber < 1 || c.PageNumber > 3 {
			t.Fatalf("chunk page %d out of document range", c.PageNumber)
		}
	}
}

func TestChunkDocumentDeterministicAcrossRuns(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1, Text: "CHAPTER 2: Relations\n2.1 Ordered Pairs\nProse about pairs.\n\nMore prose."},
		{PageNumber: 2, Text: "Example 3\nShow that R is reflexive."},
		{PageNumber: 3, Text: "SUMMARY\nKey points."},
	}

	first := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	second := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Fatalf("chunk %d text differs across runs", i)
		}
		if first[i].Kind != second[i].Kind || first[i].Label != second[i].Label {
			t.Fatalf("chunk %d metadata differs across runs", i)
		}
	}
}

func TestChunkDocumentMalformedPageDefaultsToEmpty(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 1},
		{PageNumber: 2, Text: "Real content after the empty page."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	if len(chunks) != 1 {
		t.Fatalf("expected the empty page to be skipped, got %d chunks", len(chunks))
	}
}

func TestChunkDocumentFlushesOpenCollectionAtEndOfDocument(t *testing.T) {
	pages := []domain.PageRecord{
		{PageNumber: 9, Text: "EXERCISE 4.2\n1. Prove the identity."},
	}

	chunks := testSegmenter(t).ChunkDocument(pages, "doc-1", "11")
	if len(chunks) != 1 {
		t.Fatalf("expected trailing collection to flush, got %d chunks", len(chunks))
	}
	if chunks[0].Kind != domain.KindExercise || chunks[0].Label != "4.2" {
		t.Fatalf("unexpected flushed chunk: kind=%s label=%s", chunks[0].Kind, chunks[0].Label)
	}
}
