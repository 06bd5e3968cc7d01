package domain

// PageRecord is one extracted textbook page: full text plus positioned
// blocks and detected media. Records are inputs only and never mutated.
type PageRecord struct {
	PageNumber int         `json:"page_number"`
	Text       string      `json:"text"`
	Blocks     []TextBlock `json:"blocks,omitempty"`
	Images     []PageImage `json:"images,omitempty"`
	Tables     []PageTable `json:"tables,omitempty"`
}

// TextBlock is a positioned run of page text.
type TextBlock struct {
	Text string     `json:"text"`
	BBox [4]float64 `json:"bbox"`
}

// PageImage is a figure detected on a page. Caption carries any text
// found immediately under the figure by the extractor.
type PageImage struct {
	ID         string     `json:"image_id"`
	Path       string     `json:"image_path"`
	PageNumber int        `json:"page_number"`
	BBox       [4]float64 `json:"bbox"`
	Caption    string     `json:"caption,omitempty"`
	OCRText    string     `json:"ocr_text,omitempty"`
}

// PageTable is a table detected on a page, body rendered as markdown.
type PageTable struct {
	ID         string     `json:"table_id"`
	Body       string     `json:"body"`
	PageNumber int        `json:"page_number"`
	BBox       [4]float64 `json:"bbox"`
}
