package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tutorly/mathrag/internal/core/domain"
)

func TestWriteIndexReport(t *testing.T) {
	dir := t.TempDir()
	writer := NewWriter(dir)

	tb := &domain.Textbook{ID: "tb-1", Title: "Algebra I", ClassLevel: "9"}
	chunks := []domain.Chunk{
		{ID: "c1", Kind: domain.KindExercise, Label: "3.1", PageNumber: 42, TokenCount: 100, MathDensity: 0.4},
		{ID: "c2", Kind: domain.KindExercise, Label: "3.2", PageNumber: 43, TokenCount: 80, MathDensity: 0.2},
		{ID: "c3", Kind: domain.KindTheorem, PageNumber: 44, TokenCount: 60, MathDensity: 0.6},
	}

	path, err := writer.WriteIndexReport(context.Background(), tb, chunks)
	if err != nil {
		t.Fatalf("WriteIndexReport: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("report written outside dir: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue("Summary", "B1")
	if err != nil || title != "Algebra I" {
		t.Errorf("summary title = %q (err %v), want Algebra I", title, err)
	}
	total, _ := f.GetCellValue("Summary", "B4")
	if total != "3" {
		t.Errorf("total chunks = %q, want 3", total)
	}

	rows, err := f.GetRows("Chunks")
	if err != nil {
		t.Fatalf("read chunk sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 chunk rows, got %d", len(rows))
	}
	if rows[1][0] != "c1" || rows[1][2] != "3.1" {
		t.Errorf("unexpected first chunk row %v", rows[1])
	}
}

func TestWriteIndexReportEmptyInventory(t *testing.T) {
	writer := NewWriter(t.TempDir())

	path, err := writer.WriteIndexReport(context.Background(), &domain.Textbook{ID: "tb-2"}, nil)
	if err != nil {
		t.Fatalf("WriteIndexReport: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	total, _ := f.GetCellValue("Summary", "B4")
	if total != "0" {
		t.Errorf("total chunks = %q, want 0", total)
	}
}
