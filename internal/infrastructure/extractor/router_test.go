package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type backendFake struct {
	out    domain.Extraction
	err    error
	called string
}

func (b *backendFake) Extract(_ context.Context, path string) (domain.Extraction, error) {
	b.called = path
	return b.out, b.err
}

func TestRouterDispatchesByExtension(t *testing.T) {
	images := &backendFake{out: domain.Extraction{Text: "x + y = 3", Confidence: 1.4}}
	pdf := &backendFake{out: domain.Extraction{Text: "plain"}}
	router := NewRouter(images, pdf, nil)

	got, err := router.Extract(context.Background(), "/u/a.JPG")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if images.called != "/u/a.JPG" || pdf.called != "" {
		t.Fatalf("expected image backend, got images=%q pdf=%q", images.called, pdf.called)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected clamped confidence, got %f", got.Confidence)
	}
	if !got.HasMath || len(got.MathExpressions) != 1 || got.MathExpressions[0] != "x + y =" {
		t.Fatalf("unexpected math detection %+v", got)
	}

	if _, err := router.Extract(context.Background(), "/u/a.pdf"); err != nil || pdf.called != "/u/a.pdf" {
		t.Fatalf("expected pdf backend, err=%v", err)
	}
	if _, err := router.Extract(context.Background(), "/u/a.txt"); !domain.IsKind(err, domain.ErrUnsupported) {
		t.Fatalf("expected unsupported for missing backend, got %v", err)
	}
	if _, err := router.Extract(context.Background(), "/u/a.docx"); !domain.IsKind(err, domain.ErrUnsupported) {
		t.Fatalf("expected unsupported extension, got %v", err)
	}
}

func TestRouterPropagatesBackendError(t *testing.T) {
	router := NewRouter(&backendFake{err: errors.New("ocr down")}, nil, nil)
	if _, err := router.Extract(context.Background(), "a.png"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDetectMath(t *testing.T) {
	has, exprs := DetectMath("the integral ∫ f dx")
	if !has || len(exprs) != 0 {
		t.Fatalf("expected symbol-only math, got %v %v", has, exprs)
	}
	has, _ = DetectMath("just words")
	if has {
		t.Fatalf("expected no math")
	}
}
