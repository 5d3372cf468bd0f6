package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortText(t *testing.T) {
	s := NewSplitter(100, 10)
	got := s.Split("  short note  ")
	if len(got) != 1 || got[0] != "short note" {
		t.Fatalf("unexpected chunks %q", got)
	}
	if s.Split("") != nil {
		t.Fatalf("expected nil for empty text")
	}
}

func TestSplitPrefersWhitespace(t *testing.T) {
	s := NewSplitter(12, 0)
	got := s.Split("alpha beta gamma delta")
	for _, chunk := range got {
		for _, word := range strings.Fields(chunk) {
			switch word {
			case "alpha", "beta", "gamma", "delta":
			default:
				t.Fatalf("expected whole words, got chunk %q", chunk)
			}
		}
	}
	if strings.Join(got, " ") != "alpha beta gamma delta" {
		t.Fatalf("expected chunks to cover text, got %q", got)
	}
}

func TestSplitOverlapCoversEverything(t *testing.T) {
	s := NewSplitter(10, 3)
	text := strings.Repeat("x", 35)
	got := s.Split(text)
	if len(got) < 4 {
		t.Fatalf("expected at least 4 chunks, got %d", len(got))
	}
	for _, chunk := range got {
		if len([]rune(chunk)) > 10 {
			t.Fatalf("chunk exceeds size: %q", chunk)
		}
	}
}

func TestNewSplitterClampsOverlap(t *testing.T) {
	s := NewSplitter(8, 20)
	if s.Overlap != 2 {
		t.Fatalf("expected overlap clamped to 2, got %d", s.Overlap)
	}
}
