package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

func TestStorageSaveOpenRemove(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	n, err := s.Save(ctx, "a.txt", strings.NewReader("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Save() = %d, %v", n, err)
	}
	rc, err := s.Open(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(raw) != "hello" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := s.Remove(ctx, "a.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove(ctx, "a.txt"); err != nil {
		t.Fatalf("expected idempotent remove, got %v", err)
	}
	if _, err := s.Open(ctx, "a.txt"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStorageRejectsTraversal(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"../x", "a/b", "", ".hidden"} {
		if _, err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}

func TestBucketUploadDelete(t *testing.T) {
	src := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(src, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := NewBucket(t.TempDir(), "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("NewBucket() error = %v", err)
	}

	url, err := b.Upload(context.Background(), src)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://localhost:8080/files/doc.pdf" {
		t.Fatalf("unexpected url %s", url)
	}
	if err := b.Delete(context.Background(), url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := b.Open(context.Background(), "doc.pdf"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected object removed, got %v", err)
	}
	if err := b.Delete(context.Background(), "https://elsewhere/doc.pdf"); err == nil {
		t.Fatalf("expected foreign url to be rejected")
	}
}
