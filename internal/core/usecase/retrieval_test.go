package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/notescan/internal/core/domain"
)

func TestIndexDocumentUsesRemoteWhenAvailable(t *testing.T) {
	remote := &remoteFake{}
	local := &localIndexFake{}
	svc := NewRetrievalService(remote, local, &embeddingsFake{}, nil, RetrievalOptions{})

	if ok := svc.IndexDocument(context.Background(), "doc-1", "text", nil); !ok {
		t.Fatalf("IndexDocument() = false, want true")
	}
	if len(remote.indexed) != 1 {
		t.Fatalf("expected remote index call, got %v", remote.indexed)
	}
	if len(local.Entries()) != 0 {
		t.Fatalf("local index must stay untouched when remote succeeds")
	}
}

func TestIndexDocumentFallsBackToLocal(t *testing.T) {
	for _, status := range []domain.RemoteStatus{domain.RemoteUnavailable, domain.RemoteInvalid} {
		t.Run(status.String(), func(t *testing.T) {
			local := &localIndexFake{}
			svc := NewRetrievalService(&remoteFake{indexStatus: status}, local, &embeddingsFake{}, nil, RetrievalOptions{})

			if ok := svc.IndexDocument(context.Background(), "doc-1", "text", map[string]any{"title": "t"}); !ok {
				t.Fatalf("IndexDocument() = false, want true")
			}
			entries := local.Entries()
			if len(entries) != 1 || entries[0].DocumentID != "doc-1" {
				t.Fatalf("expected local entry doc-1, got %+v", entries)
			}
		})
	}
}

func TestIndexDocumentWithoutRemoteGoesLocal(t *testing.T) {
	local := &localIndexFake{}
	svc := NewRetrievalService(nil, local, &embeddingsFake{}, nil, RetrievalOptions{})

	if ok := svc.IndexDocument(context.Background(), "doc-1", "text", nil); !ok {
		t.Fatalf("IndexDocument() = false, want true")
	}
	if svc.RemoteHealth() != domain.RemoteNotConfigured {
		t.Fatalf("expected not_configured health, got %s", svc.RemoteHealth())
	}
}

func TestIndexDocumentReportsTotalFailure(t *testing.T) {
	svc := NewRetrievalService(
		&remoteFake{indexStatus: domain.RemoteUnavailable},
		&localIndexFake{},
		&embeddingsFake{err: errors.New("model offline")},
		nil,
		RetrievalOptions{},
	)
	if ok := svc.IndexDocument(context.Background(), "doc-1", "text", nil); ok {
		t.Fatalf("IndexDocument() = true, want false")
	}

	svc = NewRetrievalService(nil, &localIndexFake{upsertErr: errors.New("disk full")}, &embeddingsFake{}, nil, RetrievalOptions{})
	if ok := svc.IndexDocument(context.Background(), "doc-1", "text", nil); ok {
		t.Fatalf("IndexDocument() = true, want false on upsert failure")
	}
}

func TestIndexDocumentIsIdempotent(t *testing.T) {
	local := &localIndexFake{}
	svc := NewRetrievalService(nil, local, &embeddingsFake{}, nil, RetrievalOptions{})
	ctx := context.Background()

	svc.IndexDocument(ctx, "doc-1", "same text", nil)
	first := svc.Search(ctx, "same", 10)
	svc.IndexDocument(ctx, "doc-1", "same text", nil)
	second := svc.Search(ctx, "same", 10)

	if len(local.Entries()) != 1 {
		t.Fatalf("expected exactly one entry, got %d", len(local.Entries()))
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("search results changed after re-index: %+v vs %+v", first, second)
	}
}

func TestSearchPrefersRemoteAndTruncates(t *testing.T) {
	remote := &remoteFake{hits: []domain.RemoteHit{
		{DocumentID: "r1", Content: "first remote", Metadata: map[string]any{"title": "One", "pdf_url": "https://x/r1.pdf"}, Score: 0.9},
		{DocumentID: "r2", Content: "second remote", Score: 0.8},
		{DocumentID: "r3", Content: "third remote", Score: 0.7},
	}}
	embeddings := &embeddingsFake{}
	svc := NewRetrievalService(remote, &localIndexFake{}, embeddings, nil, RetrievalOptions{})

	results := svc.Search(context.Background(), "remote", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].DocumentID != "r1" || results[0].Title != "One" || results[0].ArtifactURL != "https://x/r1.pdf" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Title != "Document r2" {
		t.Fatalf("expected default title, got %q", results[1].Title)
	}
	if embeddings.calls != 0 {
		t.Fatalf("local path must not run when remote answered")
	}
}

func TestSearchFallsBackOnEmptyOrFailedRemote(t *testing.T) {
	cases := map[string]*remoteFake{
		"empty":       {},
		"unavailable": {searchStatus: domain.RemoteUnavailable},
		"invalid":     {searchStatus: domain.RemoteInvalid},
	}
	for name, remote := range cases {
		t.Run(name, func(t *testing.T) {
			local := &localIndexFake{entries: []domain.IndexEntry{
				{DocumentID: "l1", Content: "local integral notes", Metadata: map[string]any{"title": "Calc"}, Embedding: []float32{1, 0}},
			}}
			svc := NewRetrievalService(remote, local, &embeddingsFake{}, nil, RetrievalOptions{})

			results := svc.Search(context.Background(), "integral", 5)
			if len(results) != 1 || results[0].DocumentID != "l1" {
				t.Fatalf("expected local result, got %+v", results)
			}
		})
	}
}

func TestSearchLocalRankingIsDeterministic(t *testing.T) {
	local := &localIndexFake{entries: []domain.IndexEntry{
		{DocumentID: "a", Content: "alpha", Embedding: []float32{1, 0}},
		{DocumentID: "b", Content: "beta", Embedding: []float32{0, 1}},
		{DocumentID: "c", Content: "gamma", Embedding: []float32{1, 0}},
		{DocumentID: "d", Content: "delta", Embedding: []float32{0.7, 0.7}},
	}}
	svc := NewRetrievalService(nil, local, &embeddingsFake{fallback: []float32{1, 0}}, nil, RetrievalOptions{})

	var previous []domain.SearchResult
	for i := 0; i < 3; i++ {
		results := svc.Search(context.Background(), "query", 3)
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].DocumentID != "a" || results[1].DocumentID != "c" || results[2].DocumentID != "d" {
			t.Fatalf("unexpected order: %+v", results)
		}
		for _, r := range results {
			if r.Score < -1 || r.Score > 1 {
				t.Fatalf("score out of bounds: %v", r.Score)
			}
		}
		if previous != nil {
			for j := range results {
				if results[j] != previous[j] {
					t.Fatalf("results changed between calls")
				}
			}
		}
		previous = results
	}
}

func TestSearchReturnsEmptyOnTotalFailure(t *testing.T) {
	local := &localIndexFake{entries: []domain.IndexEntry{{DocumentID: "a", Content: "x", Embedding: []float32{1, 0}}}}
	svc := NewRetrievalService(
		&remoteFake{searchStatus: domain.RemoteUnavailable},
		local,
		&embeddingsFake{err: errors.New("model offline")},
		nil,
		RetrievalOptions{},
	)
	results := svc.Search(context.Background(), "x", 5)
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", results)
	}

	svc = NewRetrievalService(nil, local, &embeddingsFake{fallback: []float32{1, 0, 0}}, nil, RetrievalOptions{})
	if got := svc.Search(context.Background(), "x", 5); len(got) != 0 {
		t.Fatalf("expected empty result on dimension mismatch, got %+v", got)
	}
}

func TestSearchBuildsSnippets(t *testing.T) {
	local := &localIndexFake{entries: []domain.IndexEntry{
		{DocumentID: "a", Content: "abcXYZdef", Embedding: []float32{1, 0}},
	}}
	svc := NewRetrievalService(nil, local, &embeddingsFake{}, nil, RetrievalOptions{SnippetHalfWidth: 2})

	results := svc.Search(context.Background(), "xyz", 1)
	if len(results) != 1 || results[0].Snippet != "cXYZd" {
		t.Fatalf("unexpected snippet: %+v", results)
	}
}

func TestProbeRecordsHealth(t *testing.T) {
	svc := NewRetrievalService(&remoteFake{health: domain.RemoteConnected}, &localIndexFake{}, &embeddingsFake{}, nil, RetrievalOptions{})
	if got := svc.Probe(context.Background()); got != domain.RemoteConnected {
		t.Fatalf("Probe() = %s", got)
	}
	if svc.RemoteHealth() != domain.RemoteConnected {
		t.Fatalf("RemoteHealth() = %s", svc.RemoteHealth())
	}
}

func TestRemoveDocumentClearsBothIndexes(t *testing.T) {
	remote := &remoteFake{}
	local := &localIndexFake{entries: []domain.IndexEntry{{DocumentID: "a", Embedding: []float32{1}}}}
	svc := NewRetrievalService(remote, local, &embeddingsFake{}, nil, RetrievalOptions{})

	if err := svc.RemoveDocument(context.Background(), "a"); err != nil {
		t.Fatalf("RemoveDocument() error = %v", err)
	}
	if len(remote.deleted) != 1 || len(local.Entries()) != 0 {
		t.Fatalf("expected removal from both indexes")
	}
}

func TestSuggestMatchesTitles(t *testing.T) {
	local := &localIndexFake{entries: []domain.IndexEntry{
		{DocumentID: "a", Metadata: map[string]any{"title": "Calculus lecture"}},
		{DocumentID: "b", Metadata: map[string]any{"title": "Linear algebra"}},
		{DocumentID: "c", Metadata: map[string]any{"title": "Calculus lecture"}},
	}}
	svc := NewRetrievalService(nil, local, &embeddingsFake{}, nil, RetrievalOptions{})

	got := svc.Suggest(context.Background(), "calc", 5)
	if len(got) != 1 || got[0] != "Calculus lecture" {
		t.Fatalf("Suggest() = %v", got)
	}
	if got := svc.Suggest(context.Background(), "c", 5); len(got) != 0 {
		t.Fatalf("expected no suggestions for one-letter prefix, got %v", got)
	}
}
