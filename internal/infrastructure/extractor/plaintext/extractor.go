package plaintext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Extractor reads typed notes as-is.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filePath string) (domain.Extraction, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return domain.Extraction{}, domain.WrapError(domain.ErrUnsupported, "extract text", fmt.Errorf("%s is not valid utf-8", filepath.Base(filePath)))
	}
	return domain.Extraction{Text: strings.TrimSpace(string(raw)), Confidence: 1}, nil
}
