package ocrhttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestRecognizeMergesBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		raw, _ := io.ReadAll(file)
		if header.Filename != "page.png" || string(raw) != "png" {
			t.Errorf("unexpected upload %s %q", header.Filename, raw)
		}
		if r.FormValue("languages") != "en" {
			t.Errorf("expected languages field, got %q", r.FormValue("languages"))
		}
		_, _ = w.Write([]byte(`{"results":[{"text":"F = ma","confidence":0.9},{"text":" ","confidence":0.5},{"text":"Newton","confidence":0.7}]}`))
	}))
	defer server.Close()

	got, err := New(server.URL, Options{}).Recognize(context.Background(), writeImage(t))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got.Text != "F = ma Newton" {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Confidence < 0.69 || got.Confidence > 0.71 {
		t.Fatalf("expected averaged confidence 0.7, got %f", got.Confidence)
	}
}

func TestRecognizeServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(server.URL, Options{}).Recognize(context.Background(), writeImage(t))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := merge(nil); got.Text != "" || got.Confidence != 0 {
		t.Fatalf("unexpected merge of nothing: %+v", got)
	}
}
