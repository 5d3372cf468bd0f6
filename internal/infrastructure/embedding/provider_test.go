package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/infrastructure/chunking"
)

type countingEmbedder struct {
	inner *HashingEmbedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, texts)
}

type fixedEmbedder map[string][]float32

func (f fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f[t]
	}
	return out, nil
}

type wordSplitter struct{}

func (wordSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return []string{text[:1], text[1:]}
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedDocumentMeanPools(t *testing.T) {
	p := NewProvider(fixedEmbedder{"a": {1, 0}, "b": {0, 1}}, wordSplitter{}, Options{})

	got, err := p.EmbedDocument(context.Background(), "ab")
	if err != nil {
		t.Fatalf("EmbedDocument() error = %v", err)
	}
	if math.Abs(float64(got[0]-got[1])) > 1e-6 || math.Abs(norm(got)-1) > 1e-6 {
		t.Fatalf("expected unit vector on the diagonal, got %v", got)
	}
}

func TestEmbedDocumentRejectsEmptyAndMixedDims(t *testing.T) {
	p := NewProvider(fixedEmbedder{"a": {1, 0}, "b": {1}}, wordSplitter{}, Options{})

	if _, err := p.EmbedDocument(context.Background(), ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := p.EmbedDocument(context.Background(), "ab"); !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestEmbedQueryCaches(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	p := NewProvider(inner, chunking.NewSplitter(100, 0), Options{})

	first, err := p.EmbedQuery(context.Background(), "entropy")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	second, _ := p.EmbedQuery(context.Background(), " entropy ")
	if inner.calls != 1 {
		t.Fatalf("expected cached second lookup, got %d calls", inner.calls)
	}
	if len(first) != 16 || len(second) != 16 {
		t.Fatalf("unexpected dims %d/%d", len(first), len(second))
	}

	inner.err = errors.New("down")
	if _, err := p.EmbedQuery(context.Background(), "other"); err == nil {
		t.Fatalf("expected embed error")
	}
}

func TestHashingEmbedderIsDeterministic(t *testing.T) {
	h := NewHashingEmbedder(64)
	vectors, _ := h.Embed(context.Background(), []string{"Fourier series", "fourier SERIES", "thermodynamics"})
	for i := range vectors[0] {
		if vectors[0][i] != vectors[1][i] {
			t.Fatalf("expected case-insensitive identical vectors")
		}
	}
	if math.Abs(norm(vectors[2])-1) > 1e-6 {
		t.Fatalf("expected unit norm, got %f", norm(vectors[2]))
	}
	empty, _ := h.Embed(context.Background(), []string{"!!!"})
	if norm(empty[0]) != 0 {
		t.Fatalf("expected zero vector for no tokens")
	}
}
