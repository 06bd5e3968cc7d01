// Package report writes the post-indexing chunk inventory workbook.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/tutorly/mathrag/internal/core/domain"
)

const (
	summarySheet = "Summary"
	chunkSheet   = "Chunks"
)

// Writer produces one xlsx workbook per indexed textbook with a per-kind
// summary and a full chunk listing.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) WriteIndexReport(ctx context.Context, tb *domain.Textbook, chunks []domain.Chunk) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummary(f, tb, chunks); err != nil {
		return "", err
	}
	if err := writeChunks(f, chunks); err != nil {
		return "", err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_chunks.xlsx", tb.ID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report %s: %w", path, err)
	}
	return path, nil
}

func writeSummary(f *excelize.File, tb *domain.Textbook, chunks []domain.Chunk) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	kindCounts := make(map[domain.ContentKind]int)
	pagesSeen := make(map[int]struct{})
	var totalTokens int
	var totalDensity float64
	for _, c := range chunks {
		kindCounts[c.Kind]++
		pagesSeen[c.PageNumber] = struct{}{}
		totalTokens += c.TokenCount
		totalDensity += c.MathDensity
	}

	avgDensity := 0.0
	if len(chunks) > 0 {
		avgDensity = totalDensity / float64(len(chunks))
	}

	rows := [][]any{
		{"Textbook", tb.Title},
		{"Textbook ID", tb.ID},
		{"Class level", tb.ClassLevel},
		{"Total chunks", len(chunks)},
		{"Pages with chunks", len(pagesSeen)},
		{"Total tokens", totalTokens},
		{"Avg math density", avgDensity},
		{},
		{"Content kind", "Chunks"},
	}

	kinds := make([]domain.ContentKind, 0, len(kindCounts))
	for kind := range kindCounts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		rows = append(rows, []any{string(kind), kindCounts[kind]})
	}

	return writeRows(f, summarySheet, rows)
}

func writeChunks(f *excelize.File, chunks []domain.Chunk) error {
	if _, err := f.NewSheet(chunkSheet); err != nil {
		return fmt.Errorf("create chunk sheet: %w", err)
	}

	rows := make([][]any, 0, len(chunks)+1)
	rows = append(rows, []any{
		"Chunk ID", "Kind", "Label", "Chapter", "Section", "Page",
		"Chars", "Tokens", "Math density", "Equations", "Images", "Tables",
	})
	for _, c := range chunks {
		rows = append(rows, []any{
			c.ID, string(c.Kind), c.Label,
			c.Context.ChapterNumber, c.Context.SectionName, c.PageNumber,
			c.CharCount, c.TokenCount, c.MathDensity,
			len(c.Equations), len(c.Images), len(c.Tables),
		})
	}
	return writeRows(f, chunkSheet, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
