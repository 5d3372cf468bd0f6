package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// Router picks a text extractor by file extension and tags math content on
// whatever comes back.
type Router struct {
	images ports.TextExtractor
	pdf    ports.TextExtractor
	text   ports.TextExtractor
}

// NewRouter wires the backends; a nil backend makes its file kind unsupported.
func NewRouter(images, pdf, text ports.TextExtractor) *Router {
	return &Router{images: images, pdf: pdf, text: text}
}

func (r *Router) Extract(ctx context.Context, filePath string) (domain.Extraction, error) {
	backend := r.backendFor(strings.ToLower(filepath.Ext(filePath)))
	if backend == nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrUnsupported, "extract text", fmt.Errorf("no extractor for %s", filepath.Base(filePath)))
	}
	out, err := backend.Extract(ctx, filePath)
	if err != nil {
		return domain.Extraction{}, err
	}
	out.Confidence = min(max(out.Confidence, 0), 1)
	if !out.HasMath {
		out.HasMath, out.MathExpressions = DetectMath(out.Text)
	}
	return out, nil
}

func (r *Router) backendFor(ext string) ports.TextExtractor {
	if _, ok := imageExtensions[ext]; ok {
		return r.images
	}
	switch ext {
	case ".pdf":
		return r.pdf
	case ".txt":
		return r.text
	default:
		return nil
	}
}

var (
	mathIndicators  = []string{"=", "∫", "∑", "√", "π", "±", "≤", "≥", "≠"}
	equationPattern = regexp.MustCompile(`[a-zA-Z0-9\s\+\-\*/=\(\)]+=`)
)

// DetectMath flags text containing math symbols and returns the left-hand
// sides of simple equations.
func DetectMath(text string) (bool, []string) {
	hasMath := false
	for _, ind := range mathIndicators {
		if strings.Contains(text, ind) {
			hasMath = true
			break
		}
	}
	var exprs []string
	for _, m := range equationPattern.FindAllString(text, -1) {
		if m = strings.TrimSpace(m); m != "" && m != "=" {
			exprs = append(exprs, m)
		}
	}
	return hasMath, exprs
}
