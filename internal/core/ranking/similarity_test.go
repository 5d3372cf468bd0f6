package ranking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

func TestCosineKnownValues(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, want: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Cosine() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosineStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for j := range a {
			a[j] = float32(rng.NormFloat64() * 1e3)
			b[j] = float32(rng.NormFloat64() * 1e-3)
		}
		if got := Cosine(a, b); got < -1 || got > 1 {
			t.Fatalf("Cosine() = %v out of [-1, 1]", got)
		}
	}
}

func TestTopKKeepsInsertionOrderForTies(t *testing.T) {
	entries := []domain.IndexEntry{
		{DocumentID: "a", Embedding: []float32{1, 0}},
		{DocumentID: "b", Embedding: []float32{0, 1}},
		{DocumentID: "c", Embedding: []float32{2, 0}},
		{DocumentID: "d", Embedding: []float32{0, 0}},
	}

	for run := 0; run < 5; run++ {
		got := TopK([]float32{1, 0}, entries, 10)
		ids := make([]string, 0, len(got))
		for _, s := range got {
			ids = append(ids, s.Entry.DocumentID)
		}
		want := []string{"a", "c", "b", "d"}
		for i := range want {
			if ids[i] != want[i] {
				t.Fatalf("TopK() order = %v, want %v", ids, want)
			}
		}
	}
}

func TestTopKReturnsHighestScores(t *testing.T) {
	entries := make([]domain.IndexEntry, 0, 20)
	for i := 0; i < 20; i++ {
		entries = append(entries, domain.IndexEntry{
			DocumentID: string(rune('a' + i)),
			Embedding:  []float32{float32(i), 1},
		})
	}

	got := TopK([]float32{1, 0}, entries, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not sorted descending: %v", got)
		}
	}
	if got[0].Entry.DocumentID != "t" {
		t.Fatalf("expected best entry t, got %s", got[0].Entry.DocumentID)
	}
	if TopK([]float32{1, 0}, entries, 0) != nil {
		t.Fatalf("expected nil for non-positive limit")
	}
}
