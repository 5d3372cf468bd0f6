package ports

import (
	"context"
	"io"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// DocumentIngestor accepts uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// ProcessTrigger schedules a pipeline run for an uploaded document.
type ProcessTrigger interface {
	RequestProcessing(ctx context.Context, documentID string) error
}

// DocumentProcessor runs the pipeline synchronously.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) (*domain.ProcessingResult, error)
}

// StatusReader answers processing status queries.
type StatusReader interface {
	GetProcessingResult(ctx context.Context, documentID string) (*domain.ProcessingResult, error)
}

// DocumentCatalog is the read/delete model over uploaded documents.
type DocumentCatalog interface {
	List(ctx context.Context) ([]domain.DocumentView, error)
	Get(ctx context.Context, id string) (*domain.DocumentView, error)
	Delete(ctx context.Context, id string) error
}

// ArtifactReader opens generated artifacts for download.
type ArtifactReader interface {
	Open(ctx context.Context, documentID string, artifact domain.ArtifactType) (io.ReadCloser, string, error)
}

// Searcher is the inbound contract of the retrieval service.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
	Suggest(ctx context.Context, prefix string, limit int) []string
	RemoteHealth() domain.RemoteHealth
}

// ChatService answers questions over indexed documents.
type ChatService interface {
	Chat(ctx context.Context, message, documentID string) (*domain.ChatReply, error)
}
