package domain

import "time"

type TextbookStatus string

const (
	StatusUploaded   TextbookStatus = "uploaded"
	StatusProcessing TextbookStatus = "processing"
	StatusReady      TextbookStatus = "ready"
	StatusFailed     TextbookStatus = "failed"
)

// Textbook is one ingested source document and its indexing state.
type Textbook struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Filename    string         `json:"filename"`
	ClassLevel  string         `json:"class_level"`
	StoragePath string         `json:"storage_path"`
	Status      TextbookStatus `json:"status"`
	PageCount   int            `json:"page_count,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
