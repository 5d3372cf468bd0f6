// Package localindex is the in-process vector index. Every successful write
// is followed by a full on-disk snapshot so the index survives restarts.
package localindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Store keeps entries in insertion order. Writers are serialized; readers get
// an immutable state and never block on a write in progress.
type Store struct {
	path string

	writeMu sync.Mutex
	state   atomic.Pointer[state]
}

type state struct {
	entries   []domain.IndexEntry
	positions map[string]int
	dimension int
}

func emptyState() *state {
	return &state{positions: map[string]int{}}
}

// Open restores the snapshot at path if it exists. An empty path keeps the
// index in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	s.state.Store(emptyState())
	if path == "" {
		return s, nil
	}

	entries, err := readSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("restore local index: %w", err)
	}

	restored := emptyState()
	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			slog.Warn("local_index_entry_skipped", "document_id", entry.DocumentID, "reason", "empty embedding")
			continue
		}
		if restored.dimension == 0 {
			restored.dimension = len(entry.Embedding)
		}
		if len(entry.Embedding) != restored.dimension {
			slog.Warn("local_index_entry_skipped",
				"document_id", entry.DocumentID,
				"dimension", len(entry.Embedding),
				"expected_dimension", restored.dimension,
			)
			continue
		}
		restored.positions[entry.DocumentID] = len(restored.entries)
		restored.entries = append(restored.entries, entry)
	}
	s.state.Store(restored)

	slog.Info("local_index_restored", "path", path, "documents", len(restored.entries), "dimension", restored.dimension)
	return s, nil
}

// Upsert adds or replaces an entry. A replaced entry keeps its original
// position. The new state becomes visible only after the snapshot is on disk.
func (s *Store) Upsert(_ context.Context, entry domain.IndexEntry) error {
	if entry.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "local index upsert", errors.New("empty document id"))
	}
	if len(entry.Embedding) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "local index upsert", errors.New("empty embedding"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.state.Load()
	if current.dimension != 0 && len(entry.Embedding) != current.dimension {
		return domain.WrapError(
			domain.ErrDimensionMismatch,
			"local index upsert",
			fmt.Errorf("got %d, index holds %d", len(entry.Embedding), current.dimension),
		)
	}

	next := current.clone()
	if next.dimension == 0 {
		next.dimension = len(entry.Embedding)
	}
	entry = copyEntry(entry)
	if pos, ok := next.positions[entry.DocumentID]; ok {
		next.entries[pos] = entry
	} else {
		next.positions[entry.DocumentID] = len(next.entries)
		next.entries = append(next.entries, entry)
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.state.Store(next)
	return nil
}

// Remove drops an entry. Removing an unknown id is a no-op.
func (s *Store) Remove(_ context.Context, documentID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.state.Load()
	if _, ok := current.positions[documentID]; !ok {
		return nil
	}

	next := emptyState()
	for _, entry := range current.entries {
		if entry.DocumentID == documentID {
			continue
		}
		next.positions[entry.DocumentID] = len(next.entries)
		next.entries = append(next.entries, entry)
	}
	if len(next.entries) > 0 {
		next.dimension = current.dimension
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.state.Store(next)
	return nil
}

// Entries returns the current entries in insertion order. The slice is shared
// and must not be modified.
func (s *Store) Entries() []domain.IndexEntry {
	return s.state.Load().entries
}

func (s *Store) Len() int {
	return len(s.state.Load().entries)
}

// Dimension is the embedding length fixed by the first entry, or 0 when empty.
func (s *Store) Dimension() int {
	return s.state.Load().dimension
}

func (s *Store) persist(st *state) error {
	if s.path == "" {
		return nil
	}
	if err := writeSnapshot(s.path, st.entries); err != nil {
		return domain.WrapError(domain.ErrTemporary, "local index snapshot", err)
	}
	return nil
}

func (st *state) clone() *state {
	out := &state{
		entries:   make([]domain.IndexEntry, len(st.entries), len(st.entries)+1),
		positions: make(map[string]int, len(st.positions)+1),
		dimension: st.dimension,
	}
	copy(out.entries, st.entries)
	for id, pos := range st.positions {
		out.positions[id] = pos
	}
	return out
}

func copyEntry(entry domain.IndexEntry) domain.IndexEntry {
	out := entry
	out.Embedding = append([]float32(nil), entry.Embedding...)
	out.Metadata = make(map[string]any, len(entry.Metadata))
	for k, v := range entry.Metadata {
		out.Metadata[k] = v
	}
	return out
}
