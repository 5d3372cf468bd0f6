package embedding

import (
	"context"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// HashingEmbedder is an offline embedder: term frequencies folded into a
// fixed number of buckets by hash, signed to reduce collision bias.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }

func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashingEmbedder) embedOne(text string) []float32 {
	acc := make([]float64, h.dim)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		sum := xxhash.Sum64String(tok)
		bucket := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}
	return normalize(acc)
}
