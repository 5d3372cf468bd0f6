package localindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

func entry(id string, vec ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		DocumentID: id,
		Content:    "content " + id,
		Metadata:   map[string]any{"title": id},
		Embedding:  vec,
	}
}

func TestUpsertReplacesInPlace(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	for _, e := range []domain.IndexEntry{entry("a", 1, 0), entry("b", 0, 1), entry("c", 1, 1)} {
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert(%s) error = %v", e.DocumentID, err)
		}
	}
	replacement := entry("a", 0.5, 0.5)
	replacement.Content = "updated"
	if err := store.Upsert(ctx, replacement); err != nil {
		t.Fatalf("Upsert(replacement) error = %v", err)
	}

	entries := store.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].DocumentID != "a" || entries[0].Content != "updated" {
		t.Fatalf("expected replaced entry at position 0, got %+v", entries[0])
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	store, _ := Open("")
	ctx := context.Background()

	if err := store.Upsert(ctx, entry("a", 1, 0, 0)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	err := store.Upsert(ctx, entry("b", 1, 0))
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("rejected entry must not be stored, len=%d", store.Len())
	}
	if err := store.Upsert(ctx, entry("c")); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty embedding, got %v", err)
	}
}

func TestSnapshotRoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document_index.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()
	ids := []string{"zeta", "alpha", "mid", "beta"}
	for i, id := range ids {
		if err := store.Upsert(ctx, entry(id, float32(i), 1)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	if err := store.Remove(ctx, "mid"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	restored, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	got := restored.Entries()
	want := []string{"zeta", "alpha", "beta"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].DocumentID != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i].DocumentID, want[i])
		}
	}
	if restored.Dimension() != 2 {
		t.Fatalf("expected dimension 2, got %d", restored.Dimension())
	}
	if got[0].Metadata["title"] != "zeta" {
		t.Fatalf("metadata not restored: %+v", got[0].Metadata)
	}
}

func TestSnapshotLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := Open(filepath.Join(dir, "index.json"))
	for i := 0; i < 5; i++ {
		if err := store.Upsert(context.Background(), entry(fmt.Sprintf("d%d", i), 1, 2)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(files) != 1 || files[0].Name() != "index.json" {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Fatalf("expected only index.json, got %v", names)
	}
}

func TestOpenFailsOnCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatalf("expected error for corrupt snapshot")
	}
}

func TestUpsertKeepsStateWhenSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	// The snapshot directory is a regular file, so every write fails.
	store, err := Open(filepath.Join(blocker, "index.json"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	err = store.Upsert(context.Background(), entry("a", 1))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failed write must not be visible, len=%d", store.Len())
	}
}

func TestConcurrentReadersSeeConsistentState(t *testing.T) {
	store, _ := Open(filepath.Join(t.TempDir(), "index.json"))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = store.Upsert(ctx, entry(fmt.Sprintf("d%d", i), 1, float32(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			entries := store.Entries()
			for pos, e := range entries {
				if len(e.Embedding) != 2 {
					t.Errorf("entry %d has dimension %d", pos, len(e.Embedding))
					return
				}
			}
		}
	}()
	wg.Wait()

	if store.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", store.Len())
	}
}

func TestOpenSkipsEntriesWithoutEmbedding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	raw := `{
		"broken": {"content": "lost vector", "embedding": [], "position": 0},
		"a": {"content": "content a", "embedding": [1, 0], "position": 1},
		"b": {"content": "content b", "embedding": [0, 1], "position": 2}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	entries := store.Entries()
	if len(entries) != 2 || entries[0].DocumentID != "a" || entries[1].DocumentID != "b" {
		t.Fatalf("unexpected entries after restore: %+v", entries)
	}
	if store.Dimension() != 2 {
		t.Fatalf("expected dimension 2, got %d", store.Dimension())
	}
}

func TestConcurrentWritersKeepEveryUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()

	const writers, perWriter = 8, 12
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-d%d", w, i)
				if err := store.Upsert(ctx, entry(id, float32(w), float32(i))); err != nil {
					t.Errorf("Upsert(%s) error = %v", id, err)
				}
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != writers*perWriter {
		t.Fatalf("expected %d entries in memory, got %d", writers*perWriter, store.Len())
	}
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open(reload) error = %v", err)
	}
	if reopened.Len() != writers*perWriter {
		t.Fatalf("expected %d entries in snapshot, got %d", writers*perWriter, reopened.Len())
	}
	seen := map[string]bool{}
	for _, e := range reopened.Entries() {
		seen[e.DocumentID] = true
	}
	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			if id := fmt.Sprintf("w%d-d%d", w, i); !seen[id] {
				t.Fatalf("entry %s lost", id)
			}
		}
	}
}
