package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is the upload registry record. Its processing state lives in the
// result store, keyed by the same id.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	StoragePath string    `json:"storage_path"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// Title is the original filename without directory and extension.
func (d *Document) Title() string {
	base := filepath.Base(d.Filename)
	if idx := strings.Index(base, "."); idx > 0 {
		base = base[:idx]
	}
	if base == "" || base == "." {
		return "Document " + d.ID
	}
	return base
}

// DocumentView is the read model returned by document listing endpoints.
type DocumentView struct {
	Document
	Status  ProcessingStatus `json:"status"`
	OCRText string           `json:"ocr_text,omitempty"`
	Summary *Summary         `json:"summary,omitempty"`
}

// Extraction is what a text extractor reports for one file.
type Extraction struct {
	Text            string   `json:"text"`
	Confidence      float64  `json:"confidence"`
	HasMath         bool     `json:"has_math"`
	MathExpressions []string `json:"math_expressions,omitempty"`
}

type StructureHints struct {
	HasEquations bool `json:"has_equations"`
	HasDiagrams  bool `json:"has_diagrams"`
	HasTables    bool `json:"has_tables"`
}

// Enrichment is the vision model's rewrite of the OCR text.
type Enrichment struct {
	EnhancedText string         `json:"enhanced_text"`
	Hints        StructureHints `json:"structure_hints"`
}

// MetadataField is one row of the rendered metadata block.
type MetadataField struct {
	Label string
	Value string
}

type RenderRequest struct {
	DocumentID string
	Title      string
	Text       string
	Metadata   []MetadataField
}
