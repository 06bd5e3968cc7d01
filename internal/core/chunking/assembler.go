package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// Config bounds the chunks the assembler emits.
type Config struct {
	// MaxChunkSize is the character ceiling for a collection chunk
	// part. Accumulated bodies above it split at paragraph boundaries.
	MaxChunkSize int
	// TokenBudget is the approximate token target for standalone page
	// text, sized for embedding-friendly chunks.
	TokenBudget int
	// MinChunkChars drops fragments too short to retrieve usefully.
	MinChunkChars int
}

// DefaultConfig returns the chunking defaults.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:  2800,
		TokenBudget:   800,
		MinChunkChars: 20,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()
	if out.MaxChunkSize <= 0 {
		out.MaxChunkSize = def.MaxChunkSize
	}
	if out.TokenBudget <= 0 {
		out.TokenBudget = def.TokenBudget
	}
	if out.MinChunkChars < 0 {
		out.MinChunkChars = def.MinChunkChars
	}
	return out
}

// continuationReserve is the headroom kept for "[Kind label (Part N)]"
// prefixes when splitting an oversized collection body.
const continuationReserve = 64

var (
	paragraphSplitRe = regexp.MustCompile(`\n[ \t]*\n`)
	exampleLabelRe   = regexp.MustCompile(`(?i)example\s+(\d+(?:\.\d+)?)`)
	exerciseLabelRe  = regexp.MustCompile(`(?i)exercise\s+(\d+\.\d+)`)
)

// assembler packages accumulated text into bounded chunk records for
// one document.
type assembler struct {
	cfg        Config
	documentID string
	classLevel string
}

// collectionChunks converts a flushed collection into one or more
// chunks. Parts after the first carry a synthetic continuation header
// so a reader (and the embedder) keeps the exercise identity.
func (a *assembler) collectionChunks(col *openCollection, sctx domain.StructuralContext) []domain.Chunk {
	body := col.text()
	if strings.TrimSpace(body) == "" {
		return nil
	}

	kind := col.kind.contentKind()
	if len(body) <= a.cfg.MaxChunkSize {
		return []domain.Chunk{a.newChunk(body, kind, col.label, col.startPage, sctx)}
	}

	// Reserve room for the synthetic header so every part stays within
	// the configured bound after prefixing.
	budget := a.cfg.MaxChunkSize - continuationReserve
	if budget < continuationReserve {
		budget = a.cfg.MaxChunkSize
	}
	parts := splitByParagraphBudget(body, budget)
	out := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = a.withContinuationHeader(part, col, i+1)
		}
		out = append(out, a.newChunk(part, kind, col.label, col.startPage, sctx))
	}
	return out
}

func (a *assembler) withContinuationHeader(part string, col *openCollection, n int) string {
	word := col.kind.headerWord()
	if strings.HasPrefix(part, "["+word) {
		return part
	}
	if col.label != "" {
		return fmt.Sprintf("[%s %s (Part %d)]\n%s", word, col.label, n, part)
	}
	return fmt.Sprintf("[%s (Part %d)]\n%s", word, n, part)
}

// standaloneChunks splits ordinary page text on paragraph boundaries by
// the approximate token budget and auto-detects each chunk's kind.
func (a *assembler) standaloneChunks(text string, page int, sctx domain.StructuralContext) []domain.Chunk {
	var out []domain.Chunk

	var buf strings.Builder
	bufTokens := 0
	flush := func() {
		body := strings.TrimSpace(buf.String())
		buf.Reset()
		bufTokens = 0
		if len(body) < a.cfg.MinChunkChars {
			return
		}
		kind := detectContentKind(body)
		out = append(out, a.newChunk(body, kind, standaloneLabel(kind, body), page, sctx))
	}

	for _, para := range splitParagraphs(text) {
		paraTokens := estimateTokens(para)
		if buf.Len() > 0 && bufTokens+paraTokens > a.cfg.TokenBudget {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
		bufTokens += paraTokens
	}
	flush()
	return out
}

func (a *assembler) newChunk(text string, kind domain.ContentKind, label string, page int, sctx domain.StructuralContext) domain.Chunk {
	return domain.Chunk{
		ID:          uuid.NewString(),
		DocumentID:  a.documentID,
		ClassLevel:  a.classLevel,
		Context:     sctx,
		Kind:        kind,
		PageNumber:  page,
		Text:        text,
		Equations:   extractEquations(text),
		Label:       label,
		CharCount:   len(text),
		TokenCount:  estimateTokens(text),
		MathDensity: mathDensity(text),
		CreatedAt:   time.Now().UTC(),
	}
}

func standaloneLabel(kind domain.ContentKind, text string) string {
	switch kind {
	case domain.KindExample:
		if m := exampleLabelRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	case domain.KindExercise:
		if m := exerciseLabelRe.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func splitParagraphs(text string) []string {
	raw := paragraphSplitRe.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, para := range raw {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}

// splitByParagraphBudget greedily packs paragraphs into parts bounded
// by maxChars. A single paragraph above the bound hard-splits on rune
// windows so every emitted part stays within it.
func splitByParagraphBudget(text string, maxChars int) []string {
	var parts []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			parts = append(parts, buf.String())
			buf.Reset()
		}
	}

	for _, para := range splitParagraphs(text) {
		if len(para) > maxChars {
			flush()
			parts = append(parts, splitRuneWindows(para, maxChars)...)
			continue
		}
		if buf.Len() > 0 && buf.Len()+2+len(para) > maxChars {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)
	}
	flush()
	return parts
}

func splitRuneWindows(text string, maxChars int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); {
		end := start
		size := 0
		for end < len(runes) {
			next := size + len(string(runes[end]))
			if next > maxChars && end > start {
				break
			}
			size = next
			end++
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			out = append(out, window)
		}
		start = end
	}
	return out
}
