package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Extractor reads the embedded text layer of a PDF. Pure image scans come
// back with empty text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filePath string) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return domain.Extraction{}, fmt.Errorf("read pdf text: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	out := domain.Extraction{Text: text}
	if text != "" {
		out.Confidence = 1
	}
	return out, nil
}
