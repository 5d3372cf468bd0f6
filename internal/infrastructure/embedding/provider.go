package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

// Provider turns whole documents and queries into single vectors. Long
// documents are chunked and mean-pooled.
type Provider struct {
	embedder ports.Embedder
	chunker  ports.Chunker
	queries  *cache.Cache
}

type Options struct {
	QueryCacheTTL time.Duration
}

func NewProvider(embedder ports.Embedder, chunker ports.Chunker, opts Options) *Provider {
	if opts.QueryCacheTTL <= 0 {
		opts.QueryCacheTTL = 10 * time.Minute
	}
	return &Provider{
		embedder: embedder,
		chunker:  chunker,
		queries:  cache.New(opts.QueryCacheTTL, 2*opts.QueryCacheTTL),
	}
}

func (p *Provider) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed document", errors.New("no text to embed"))
	}
	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return meanPool(vectors)
}

func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", errors.New("empty query"))
	}
	if cached, ok := p.queries.Get(key); ok {
		return cached.([]float32), nil
	}
	vectors, err := p.embedder.Embed(ctx, []string{key})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	p.queries.SetDefault(key, vectors[0])
	return vectors[0], nil
}

func meanPool(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, domain.WrapError(domain.ErrDimensionMismatch, "pool embeddings", fmt.Errorf("got %d, want %d", len(v), dim))
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	return normalize(sum), nil
}

func normalize(v []float64) []float32 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		if norm > 0 {
			out[i] = float32(x / norm)
		}
	}
	return out
}
