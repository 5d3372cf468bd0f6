package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/notescan/internal/core/ports"
)

const (
	serverName    = "notescan"
	serverVersion = "0.1.0"
	endpointPath  = "/mcp"

	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Server exposes search and processing status as MCP tools.
type Server struct {
	search ports.Searcher
	status ports.StatusReader
	mcp    *server.MCPServer
}

func NewServer(search ports.Searcher, status ports.StatusReader) *Server {
	s := &Server{
		search: search,
		status: status,
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
	}
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(processingStatusTool(), s.handleProcessingStatus)
	return s
}

// Handler serves the streamable HTTP transport under /mcp.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
	)
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Search processed notes by meaning and return the best matching snippets"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum results to return (default: %d, max: %d)", defaultSearchLimit, maxSearchLimit)),
		),
	)
}

func processingStatusTool() mcp.Tool {
	return mcp.NewTool("get_processing_status",
		mcp.WithDescription("Return the processing record of an uploaded document, including per-stage outcomes"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document id returned by the upload endpoint"),
		),
	)
}

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	limit := request.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results := s.search.Search(ctx, query, limit)
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No documents matched %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d document(s) for %q:\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s (id: %s, score: %.3f)\n", i+1, r.Title, r.DocumentID, r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		if r.ArtifactURL != "" {
			fmt.Fprintf(&b, "   pdf: %s\n", r.ArtifactURL)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleProcessingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil || strings.TrimSpace(id) == "" {
		return mcp.NewToolResultError("document_id parameter is required"), nil
	}

	result, err := s.status.GetProcessingResult(ctx, id)
	if err != nil {
		slog.Warn("mcp_status_lookup_failed", "document_id", id, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal processing result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
