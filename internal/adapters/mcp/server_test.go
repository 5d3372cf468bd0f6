package mcpadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type mockSearcher struct {
	results   []domain.SearchResult
	lastLimit int
}

func (m *mockSearcher) Search(_ context.Context, _ string, limit int) []domain.SearchResult {
	m.lastLimit = limit
	return m.results
}

func (m *mockSearcher) Suggest(context.Context, string, int) []string { return nil }

func (m *mockSearcher) RemoteHealth() domain.RemoteHealth { return domain.RemoteNotConfigured }

type mockStatus struct {
	result *domain.ProcessingResult
	err    error
}

func (m mockStatus) GetProcessingResult(context.Context, string) (*domain.ProcessingResult, error) {
	return m.result, m.err
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestHandleSearchDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("formats results", func(t *testing.T) {
		searcher := &mockSearcher{results: []domain.SearchResult{
			{DocumentID: "doc-1", Title: "calculus", Snippet: "...the integral of x...", Score: 0.91},
		}}
		s := NewServer(searcher, mockStatus{})

		result, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]any{"query": "integral"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		text := resultText(t, result)
		assert.Contains(t, text, "calculus")
		assert.Contains(t, text, "doc-1")
		assert.Equal(t, defaultSearchLimit, searcher.lastLimit)
	})

	t.Run("caps limit", func(t *testing.T) {
		searcher := &mockSearcher{}
		s := NewServer(searcher, mockStatus{})

		result, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]any{"query": "x", "limit": 500}))
		require.NoError(t, err)
		assert.Equal(t, maxSearchLimit, searcher.lastLimit)
		assert.Contains(t, resultText(t, result), "No documents matched")
	})

	t.Run("requires query", func(t *testing.T) {
		s := NewServer(&mockSearcher{}, mockStatus{})

		result, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleProcessingStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns record as json", func(t *testing.T) {
		s := NewServer(&mockSearcher{}, mockStatus{result: &domain.ProcessingResult{
			DocumentID: "doc-1",
			Status:     domain.StatusCompleted,
		}})

		result, err := s.handleProcessingStatus(ctx, callRequest("get_processing_status", map[string]any{"document_id": "doc-1"}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, result), `"status": "completed"`)
	})

	t.Run("reports not found as tool error", func(t *testing.T) {
		s := NewServer(&mockSearcher{}, mockStatus{err: domain.WrapError(domain.ErrDocumentNotFound, "status", errors.New("missing"))})

		result, err := s.handleProcessingStatus(ctx, callRequest("get_processing_status", map[string]any{"document_id": "missing"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "document not found")
	})
}
