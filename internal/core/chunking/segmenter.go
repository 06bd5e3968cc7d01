package chunking

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

// Segmenter turns an ordered stream of page records into ordered,
// structurally labeled chunks. The cross-page accumulator and the
// chapter/section context are explicit values threaded through the
// page walk, so the same header set and page order always produce the
// same chunking.
type Segmenter struct {
	cfg      Config
	patterns *PatternSet
	linker   *ReferenceLinker
	logger   *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithPatterns overrides the built-in header pattern families.
func WithPatterns(ps *PatternSet) Option {
	return func(s *Segmenter) {
		if ps != nil {
			s.patterns = ps
		}
	}
}

// WithOrphanStrategy swaps the media orphan-rescue heuristic.
func WithOrphanStrategy(strategy OrphanStrategy) Option {
	return func(s *Segmenter) {
		s.linker = NewReferenceLinker(strategy, s.logger)
	}
}

func NewSegmenter(cfg Config, logger *slog.Logger, opts ...Option) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Segmenter{
		cfg:      cfg.normalize(),
		patterns: DefaultPatterns(),
		linker:   NewReferenceLinker(SamePageStrategy{}, logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// walkState carries everything mutable across pages.
type walkState struct {
	asm    *assembler
	sctx   domain.StructuralContext
	open   *openCollection
	chunks []domain.Chunk
}

// ChunkDocument segments the whole page stream for one document.
// Indexing is strictly sequential: the structural context and any open
// collection are carried page to page.
func (s *Segmenter) ChunkDocument(pages []domain.PageRecord, documentID, classLevel string) []domain.Chunk {
	st := &walkState{
		asm: &assembler{cfg: s.cfg, documentID: documentID, classLevel: classLevel},
		sctx: domain.StructuralContext{
			ChapterNumber: 0,
			ChapterName:   "Introduction",
		},
	}

	for _, page := range pages {
		s.walkPage(st, page)
	}

	// End of document force-closes whatever is still gathering.
	s.flushCollection(st)

	s.logger.Info("document_chunked",
		"document_id", documentID,
		"pages", len(pages),
		"chunks", len(st.chunks),
	)
	return st.chunks
}

func (s *Segmenter) walkPage(st *walkState, page domain.PageRecord) {
	text := page.Text
	pageNum := page.PageNumber

	// Media follows the collection that is open while this page is
	// being gathered; otherwise it stays page-local for the standalone
	// chunks created here.
	mediaClaimed := false
	if st.open != nil {
		st.open.appendMedia(page.Images, page.Tables)
		mediaClaimed = true
	}

	standaloneStart := len(st.chunks)
	headers := s.patterns.findHeaders(text)

	cursor := 0
	for _, h := range headers {
		s.dispatchText(st, text[cursor:h.start], pageNum)

		// Any header force-closes the open collection before taking
		// its own effect.
		s.flushCollection(st)

		switch h.family {
		case familyChapter:
			s.enterChapter(st, h)
		case familySection:
			st.sctx.SectionName = h.title
		}

		if h.opensCollection() {
			st.open = newCollection(collectionKindFor(h.family), h.label, pageNum)
			if !mediaClaimed {
				st.open.appendMedia(page.Images, page.Tables)
				mediaClaimed = true
			}
		}
		cursor = h.start
	}
	s.dispatchText(st, text[cursor:], pageNum)

	if !mediaClaimed {
		s.linkStandalone(st.chunks[standaloneStart:], page)
	}
}

// dispatchText routes inter-header text: into the open collection when
// one exists, otherwise into standalone chunks.
func (s *Segmenter) dispatchText(st *walkState, text string, pageNum int) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if st.open != nil {
		st.open.appendText(text)
		return
	}
	st.chunks = append(st.chunks, st.asm.standaloneChunks(text, pageNum, st.sctx)...)
}

// flushCollection assembles and reference-links the open collection.
func (s *Segmenter) flushCollection(st *walkState) {
	if st.open == nil {
		return
	}
	col := st.open
	st.open = nil
	if col.empty() {
		return
	}

	parts := st.asm.collectionChunks(col, st.sctx)
	if len(parts) == 0 {
		return
	}

	// All parts stay eligible against the collection's whole media
	// set, so a later part can still claim a figure cited early on.
	refs := make([]*domain.Chunk, len(parts))
	for i := range parts {
		refs[i] = &parts[i]
	}
	s.linker.LinkGroup(refs, col.images, col.tables)

	st.chunks = append(st.chunks, parts...)
}

func (s *Segmenter) linkStandalone(created []domain.Chunk, page domain.PageRecord) {
	if len(page.Images) == 0 && len(page.Tables) == 0 {
		return
	}
	if len(created) == 0 {
		for _, img := range page.Images {
			s.logger.Warn("orphan_image_dropped", "image_id", img.ID, "page", page.PageNumber)
		}
		for _, tbl := range page.Tables {
			s.logger.Warn("orphan_table_dropped", "table_id", tbl.ID, "page", page.PageNumber)
		}
		return
	}
	refs := make([]*domain.Chunk, len(created))
	for i := range created {
		refs[i] = &created[i]
	}
	s.linker.LinkGroup(refs, page.Images, page.Tables)
}

// enterChapter advances the structural context for chunks created from
// here on. Already-emitted chunks keep the context they were born
// under, and a stray back-reference to an earlier chapter never moves
// the context backwards.
func (s *Segmenter) enterChapter(st *walkState, h header) {
	num, err := strconv.Atoi(h.label)
	if err != nil || num < st.sctx.ChapterNumber {
		return
	}
	name := h.title
	if name == "" {
		name = fmt.Sprintf("Chapter %d", num)
	}
	st.sctx = domain.StructuralContext{
		ChapterNumber: num,
		ChapterName:   name,
	}
}

func collectionKindFor(f headerFamily) collectionKind {
	switch f {
	case familyExample:
		return collectExample
	case familyMiscellaneous:
		return collectMiscellaneous
	default:
		return collectExercise
	}
}
