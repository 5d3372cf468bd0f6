package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type localIndexFake struct {
	mu        sync.Mutex
	entries   []domain.IndexEntry
	upsertErr error
	removed   []string
}

func (f *localIndexFake) Upsert(_ context.Context, entry domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for i := range f.entries {
		if f.entries[i].DocumentID == entry.DocumentID {
			f.entries[i] = entry
			return nil
		}
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *localIndexFake) Remove(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, documentID)
	out := f.entries[:0]
	for _, e := range f.entries {
		if e.DocumentID != documentID {
			out = append(out, e)
		}
	}
	f.entries = out
	return nil
}

func (f *localIndexFake) Entries() []domain.IndexEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.IndexEntry(nil), f.entries...)
}

// embeddingsFake maps known texts to fixed vectors; unknown text gets fallback.
type embeddingsFake struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (f *embeddingsFake) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	return f.lookup(text)
}

func (f *embeddingsFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.lookup(text)
}

func (f *embeddingsFake) lookup(text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return []float32{1, 0}, nil
}

type remoteFake struct {
	indexStatus  domain.RemoteStatus
	searchStatus domain.RemoteStatus
	hits         []domain.RemoteHit
	health       domain.RemoteHealth
	indexed      []string
	deleted      []string
}

func (f *remoteFake) IndexDocument(_ context.Context, documentID, _ string, _ map[string]any) domain.RemoteIndexResult {
	if f.indexStatus != domain.RemoteOK {
		return domain.RemoteIndexResult{Status: f.indexStatus, Err: errors.New("remote down")}
	}
	f.indexed = append(f.indexed, documentID)
	return domain.RemoteIndexResult{Status: domain.RemoteOK}
}

func (f *remoteFake) Search(context.Context, string, int) domain.RemoteSearchResult {
	if f.searchStatus != domain.RemoteOK {
		return domain.RemoteSearchResult{Status: f.searchStatus, Err: errors.New("remote down")}
	}
	return domain.RemoteSearchResult{Status: domain.RemoteOK, Hits: f.hits}
}

func (f *remoteFake) DeleteDocument(_ context.Context, documentID string) domain.RemoteIndexResult {
	f.deleted = append(f.deleted, documentID)
	return domain.RemoteIndexResult{Status: domain.RemoteOK}
}

func (f *remoteFake) Health(context.Context) domain.RemoteHealth {
	return f.health
}

type docRepoFake struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
	err  error
}

func newDocRepoFake(docs ...*domain.Document) *docRepoFake {
	f := &docRepoFake{docs: map[string]*domain.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) List(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *docRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", errors.New(id))
	}
	delete(f.docs, id)
	return nil
}

type resultStoreFake struct {
	mu      sync.Mutex
	records map[string]*domain.ProcessingResult
	history []domain.ProcessingStatus
	saveErr error
	// failCalls fails the listed 1-based Save calls.
	failCalls map[int]bool
	calls     int
}

func newResultStoreFake() *resultStoreFake {
	return &resultStoreFake{records: map[string]*domain.ProcessingResult{}}
}

func (f *resultStoreFake) Save(_ context.Context, result *domain.ProcessingResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.failCalls[f.calls] {
		return errors.New("result store write timeout")
	}
	f.records[result.DocumentID] = result.Clone()
	f.history = append(f.history, result.Status)
	return nil
}

func (f *resultStoreFake) Get(_ context.Context, id string) (*domain.ProcessingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrResultNotFound, "get result", errors.New(id))
	}
	return r.Clone(), nil
}

func (f *resultStoreFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

// dirStore is a FileStore over a temp directory.
type dirStore struct {
	dir string
}

func (s dirStore) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, key), raw, 0o644); err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}

func (s dirStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open file", err)
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s dirStore) Remove(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s dirStore) Path(key string) string {
	return filepath.Join(s.dir, key)
}

type objectStorageFake struct {
	mu       sync.Mutex
	err      error
	uploaded []string
	deleted  []string
}

func (f *objectStorageFake) Upload(_ context.Context, localPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, localPath)
	return "https://bucket.local/" + filepath.Base(localPath), nil
}

func (f *objectStorageFake) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}
