// Package ranking holds the pure scoring helpers used by local search.
package ranking

import (
	"math"
	"sort"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different length or with zero norm score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	default:
		return score
	}
}

type Scored struct {
	Entry domain.IndexEntry
	Score float64
}

// TopK scores entries against query and returns at most limit of them in
// descending score order. Entries must be given in insertion order; ties keep
// that order.
func TopK(query []float32, entries []domain.IndexEntry, limit int) []Scored {
	if limit <= 0 || len(entries) == 0 {
		return nil
	}

	scored := make([]Scored, len(entries))
	for i, entry := range entries {
		scored[i] = Scored{Entry: entry, Score: Cosine(query, entry.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
