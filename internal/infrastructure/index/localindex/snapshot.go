package localindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// snapshotEntry is the on-disk value, keyed by document id. Position restores
// insertion order because object keys are unordered.
type snapshotEntry struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding"`
	Position  int            `json:"position"`
}

func readSnapshot(path string) ([]domain.IndexEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var doc map[string]snapshotEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	entries := make([]domain.IndexEntry, 0, len(doc))
	positions := make(map[string]int, len(doc))
	for id, item := range doc {
		positions[id] = item.Position
		entries = append(entries, domain.IndexEntry{
			DocumentID: id,
			Content:    item.Content,
			Metadata:   item.Metadata,
			Embedding:  item.Embedding,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := positions[entries[i].DocumentID], positions[entries[j].DocumentID]
		if pi != pj {
			return pi < pj
		}
		return entries[i].DocumentID < entries[j].DocumentID
	})
	return entries, nil
}

// writeSnapshot replaces the file at path with the full entry set. Readers of
// the file see either the previous or the new snapshot, never a partial one.
func writeSnapshot(path string, entries []domain.IndexEntry) error {
	doc := make(map[string]snapshotEntry, len(entries))
	for i, entry := range entries {
		doc[entry.DocumentID] = snapshotEntry{
			Content:   entry.Content,
			Metadata:  entry.Metadata,
			Embedding: entry.Embedding,
			Position:  i,
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename snapshot: %w", err)
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
