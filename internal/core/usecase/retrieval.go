package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
	"github.com/kirillkom/notescan/internal/core/ranking"
)

const (
	pathRemote = "remote"
	pathLocal  = "local"
)

type RetrievalOptions struct {
	DefaultLimit     int
	SnippetHalfWidth int
	RemoteTimeout    time.Duration
	EmbedTimeout     time.Duration
}

func (o RetrievalOptions) normalize() RetrievalOptions {
	out := o
	if out.DefaultLimit <= 0 {
		out.DefaultLimit = 10
	}
	if out.SnippetHalfWidth <= 0 {
		out.SnippetHalfWidth = ranking.DefaultHalfWidth
	}
	if out.RemoteTimeout <= 0 {
		out.RemoteTimeout = 30 * time.Second
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = 30 * time.Second
	}
	return out
}

// RetrievalService indexes and searches documents through the remote backend
// and falls back to the local index whenever the remote path cannot serve the
// call. It never surfaces an error to its callers.
type RetrievalService struct {
	remote     ports.RemoteRetrieval
	local      ports.LocalIndex
	embeddings ports.EmbeddingProvider
	metrics    ports.RetrievalMetrics
	opts       RetrievalOptions

	health atomic.Value
}

// NewRetrievalService wires the service. remote may be nil when no backend is
// configured; metrics may be nil.
func NewRetrievalService(
	remote ports.RemoteRetrieval,
	local ports.LocalIndex,
	embeddings ports.EmbeddingProvider,
	metrics ports.RetrievalMetrics,
	opts RetrievalOptions,
) *RetrievalService {
	s := &RetrievalService{
		remote:     remote,
		local:      local,
		embeddings: embeddings,
		metrics:    metrics,
		opts:       opts.normalize(),
	}
	if remote == nil {
		s.health.Store(domain.RemoteNotConfigured)
	} else {
		s.health.Store(domain.RemoteUnreachable)
	}
	return s
}

// Probe checks remote reachability once. The result is informational only:
// every call still tries the remote backend first.
func (s *RetrievalService) Probe(ctx context.Context) domain.RemoteHealth {
	if s.remote == nil {
		return domain.RemoteNotConfigured
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
	defer cancel()

	health := s.remote.Health(probeCtx)
	s.health.Store(health)
	if health == domain.RemoteConnected {
		slog.Info("remote_retrieval_probe", "status", string(health))
	} else {
		slog.Warn("remote_retrieval_probe", "status", string(health), "fallback", pathLocal)
	}
	return health
}

func (s *RetrievalService) RemoteHealth() domain.RemoteHealth {
	health, _ := s.health.Load().(domain.RemoteHealth)
	return health
}

// IndexDocument stores content under documentID. It reports whether either
// the remote or the local path accepted the document.
func (s *RetrievalService) IndexDocument(ctx context.Context, documentID, content string, metadata map[string]any) bool {
	if s.remote != nil {
		remoteCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
		outcome := s.remote.IndexDocument(remoteCtx, documentID, content, metadata)
		cancel()

		if outcome.Status == domain.RemoteOK {
			s.observeIndex(pathRemote, true)
			return true
		}
		s.observeIndex(pathRemote, false)
		slog.Warn("retrieval_fallback",
			"operation", "index",
			"document_id", documentID,
			"remote_status", outcome.Status.String(),
			"error", errString(outcome.Err),
		)
	}

	if err := s.indexLocal(ctx, documentID, content, metadata); err != nil {
		s.observeIndex(pathLocal, false)
		slog.Error("local_index_failed", "document_id", documentID, "error", err)
		return false
	}
	s.observeIndex(pathLocal, true)
	return true
}

func (s *RetrievalService) indexLocal(ctx context.Context, documentID, content string, metadata map[string]any) error {
	embedCtx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	vector, err := s.embeddings.EmbedDocument(embedCtx, content)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	if err := s.local.Upsert(ctx, domain.IndexEntry{
		DocumentID: documentID,
		Content:    content,
		Metadata:   metadata,
		Embedding:  vector,
	}); err != nil {
		return fmt.Errorf("upsert local index: %w", err)
	}
	return nil
}

// Search returns at most limit results. A failed or empty remote search falls
// through to the local index; total failure yields an empty slice.
func (s *RetrievalService) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}
	}

	if s.remote != nil {
		start := time.Now()
		remoteCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
		outcome := s.remote.Search(remoteCtx, query, limit)
		cancel()

		if outcome.Status == domain.RemoteOK && len(outcome.Hits) > 0 {
			hits := outcome.Hits
			if len(hits) > limit {
				hits = hits[:limit]
			}
			out := make([]domain.SearchResult, 0, len(hits))
			for _, hit := range hits {
				out = append(out, s.toResult(hit.DocumentID, hit.Content, hit.Metadata, hit.Score, query))
			}
			s.observeSearch(pathRemote, len(out), time.Since(start))
			return out
		}
		slog.Warn("retrieval_fallback",
			"operation", "search",
			"remote_status", outcome.Status.String(),
			"remote_hits", len(outcome.Hits),
			"error", errString(outcome.Err),
		)
	}

	start := time.Now()
	out, err := s.searchLocal(ctx, query, limit)
	if err != nil {
		slog.Error("local_search_failed", "error", err)
		out = []domain.SearchResult{}
	}
	s.observeSearch(pathLocal, len(out), time.Since(start))
	return out
}

func (s *RetrievalService) searchLocal(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	entries := s.local.Entries()
	if len(entries) == 0 {
		return []domain.SearchResult{}, nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()
	vector, err := s.embeddings.EmbedQuery(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) != len(entries[0].Embedding) {
		return nil, domain.WrapError(
			domain.ErrDimensionMismatch,
			"local search",
			fmt.Errorf("query has %d dimensions, index holds %d", len(vector), len(entries[0].Embedding)),
		)
	}

	scored := ranking.TopK(vector, entries, limit)
	out := make([]domain.SearchResult, 0, len(scored))
	for _, item := range scored {
		out = append(out, s.toResult(item.Entry.DocumentID, item.Entry.Content, item.Entry.Metadata, item.Score, query))
	}
	return out, nil
}

// RemoveDocument deletes a document from both indexes. Remote failures are
// logged; only a local failure is returned.
func (s *RetrievalService) RemoveDocument(ctx context.Context, documentID string) error {
	if s.remote != nil {
		remoteCtx, cancel := context.WithTimeout(ctx, s.opts.RemoteTimeout)
		outcome := s.remote.DeleteDocument(remoteCtx, documentID)
		cancel()
		if outcome.Status != domain.RemoteOK {
			slog.Warn("remote_delete_failed",
				"document_id", documentID,
				"remote_status", outcome.Status.String(),
				"error", errString(outcome.Err),
			)
		}
	}
	if err := s.local.Remove(ctx, documentID); err != nil {
		return fmt.Errorf("remove from local index: %w", err)
	}
	return nil
}

// Suggest returns distinct titles from the local index containing prefix.
func (s *RetrievalService) Suggest(_ context.Context, prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len([]rune(prefix)) < 2 {
		return []string{}
	}
	if limit <= 0 {
		limit = 5
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, entry := range s.local.Entries() {
		title := titleOf(entry.DocumentID, entry.Metadata)
		if !strings.Contains(strings.ToLower(title), prefix) {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *RetrievalService) toResult(documentID, content string, metadata map[string]any, score float64, query string) domain.SearchResult {
	return domain.SearchResult{
		DocumentID:  documentID,
		Title:       titleOf(documentID, metadata),
		Snippet:     ranking.Snippet(content, query, s.opts.SnippetHalfWidth),
		Score:       score,
		ArtifactURL: stringMeta(metadata, "pdf_url"),
	}
}

func (s *RetrievalService) observeIndex(path string, ok bool) {
	if s.metrics != nil {
		s.metrics.ObserveIndex(path, ok)
	}
}

func (s *RetrievalService) observeSearch(path string, results int, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(path, results, elapsed.Seconds())
	}
}

func titleOf(documentID string, metadata map[string]any) string {
	if title := stringMeta(metadata, "title"); title != "" {
		return title
	}
	return "Document " + documentID
}

func stringMeta(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	v, _ := metadata[key].(string)
	return strings.TrimSpace(v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
