package chunking

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/tutorly/mathrag/internal/core/domain"
)

var (
	figureCiteRe = regexp.MustCompile(`(?i)\bfig(?:ure)?\.?\s*(\d+(?:\.\d+)*)`)
	tableCiteRe  = regexp.MustCompile(`(?i)\btable\.?\s*(\d+(?:\.\d+)*)`)
	digitRunRe   = regexp.MustCompile(`\d+`)
)

// OrphanStrategy decides where media unmatched by explicit citations
// goes. Strategies mutate the chunks in place and return whatever they
// could not place.
type OrphanStrategy interface {
	Attach(chunks []*domain.Chunk, images []domain.PageImage, tables []domain.PageTable) (droppedImages []domain.PageImage, droppedTables []domain.PageTable)
}

// SamePageStrategy attaches an orphan to every chunk recorded on the
// orphan's page. Deliberately lossy: no bounding-box proximity is used.
type SamePageStrategy struct{}

func (SamePageStrategy) Attach(chunks []*domain.Chunk, images []domain.PageImage, tables []domain.PageTable) ([]domain.PageImage, []domain.PageTable) {
	var droppedImages []domain.PageImage
	for _, img := range images {
		placed := false
		for _, c := range chunks {
			if c.PageNumber == img.PageNumber {
				c.Images = append(c.Images, img)
				placed = true
			}
		}
		if !placed {
			droppedImages = append(droppedImages, img)
		}
	}

	var droppedTables []domain.PageTable
	for _, tbl := range tables {
		placed := false
		for _, c := range chunks {
			if c.PageNumber == tbl.PageNumber {
				c.Tables = append(c.Tables, tbl)
				placed = true
			}
		}
		if !placed {
			droppedTables = append(droppedTables, tbl)
		}
	}
	return droppedImages, droppedTables
}

// ReferenceLinker attaches page media to the chunks whose text cites
// them, then rescues leftovers through the orphan strategy. It only
// runs during assembly; chunks are immutable afterward.
type ReferenceLinker struct {
	strategy OrphanStrategy
	logger   *slog.Logger
}

func NewReferenceLinker(strategy OrphanStrategy, logger *slog.Logger) *ReferenceLinker {
	if strategy == nil {
		strategy = SamePageStrategy{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceLinker{strategy: strategy, logger: logger}
}

// LinkGroup resolves one collection group (or one page's standalone
// chunks) against the media gathered for it. Phase 1 explicit-citation
// matching runs for the whole group before any orphan rescue, and a
// phase-1 match removes the item from the orphan pool.
func (l *ReferenceLinker) LinkGroup(chunks []*domain.Chunk, images []domain.PageImage, tables []domain.PageTable) {
	if len(chunks) == 0 || (len(images) == 0 && len(tables) == 0) {
		return
	}

	matchedImages := make(map[string]bool, len(images))
	matchedTables := make(map[string]bool, len(tables))

	for _, c := range chunks {
		attached := make(map[string]bool)
		for _, num := range citedNumbers(c.Text, figureCiteRe) {
			for _, img := range images {
				if attached[img.ID] || mediaNumber(img.ID) != num {
					continue
				}
				c.Images = append(c.Images, img)
				attached[img.ID] = true
				matchedImages[img.ID] = true
			}
		}
		for _, num := range citedNumbers(c.Text, tableCiteRe) {
			for _, tbl := range tables {
				if attached[tbl.ID] || mediaNumber(tbl.ID) != num {
					continue
				}
				c.Tables = append(c.Tables, tbl)
				attached[tbl.ID] = true
				matchedTables[tbl.ID] = true
			}
		}
	}

	var orphanImages []domain.PageImage
	for _, img := range images {
		if !matchedImages[img.ID] {
			orphanImages = append(orphanImages, img)
		}
	}
	var orphanTables []domain.PageTable
	for _, tbl := range tables {
		if !matchedTables[tbl.ID] {
			orphanTables = append(orphanTables, tbl)
		}
	}
	if len(orphanImages) == 0 && len(orphanTables) == 0 {
		return
	}

	droppedImages, droppedTables := l.strategy.Attach(chunks, orphanImages, orphanTables)
	for _, img := range droppedImages {
		l.logger.Warn("orphan_image_dropped", "image_id", img.ID, "page", img.PageNumber)
	}
	for _, tbl := range droppedTables {
		l.logger.Warn("orphan_table_dropped", "table_id", tbl.ID, "page", tbl.PageNumber)
	}
}

// citedNumbers extracts the normalized figure/table numbers a chunk's
// text cites, in order of first appearance without duplicates.
func citedNumbers(text string, re *regexp.Regexp) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		num := strings.TrimRight(m[1], ".")
		if num == "" || seen[num] {
			continue
		}
		seen[num] = true
		out = append(out, num)
	}
	return out
}

// mediaNumber normalizes a media identifier ("fig_3_5", "table2.1") to
// its dotted numeric form ("3.5", "2.1") for citation matching.
func mediaNumber(id string) string {
	runs := digitRunRe.FindAllString(id, -1)
	if len(runs) == 0 {
		return ""
	}
	return strings.Join(runs, ".")
}
