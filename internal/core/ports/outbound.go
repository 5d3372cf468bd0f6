package ports

import (
	"context"
	"io"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// DocumentRepository persists the upload registry.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ResultStore persists one processing record per document. Save replaces the
// whole record atomically.
type ResultStore interface {
	Save(ctx context.Context, result *domain.ProcessingResult) error
	Get(ctx context.Context, documentID string) (*domain.ProcessingResult, error)
	Delete(ctx context.Context, documentID string) error
}

// FileStore keeps uploaded originals and locally produced artifacts.
type FileStore interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Path(key string) string
}

// ObjectStorage publishes local files and returns a public location.
type ObjectStorage interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

// MessageQueue carries process requests to the pipeline consumer.
type MessageQueue interface {
	PublishProcessRequested(ctx context.Context, documentID string) error
	SubscribeProcessRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored file into text.
type TextExtractor interface {
	Extract(ctx context.Context, filePath string) (domain.Extraction, error)
}

// Enricher rewrites OCR text with a vision-language model.
type Enricher interface {
	Enabled() bool
	Enrich(ctx context.Context, filePath, ocrText string) (domain.Enrichment, error)
}

// Renderer produces a document artifact and returns its local path.
type Renderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (string, error)
}

// Embedder is a raw batch embedding model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingProvider maps whole documents and queries to fixed-length vectors.
type EmbeddingProvider interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits long text before embedding.
type Chunker interface {
	Split(text string) []string
}

// LocalIndex is the in-process vector index used when the remote backend
// cannot serve a request.
type LocalIndex interface {
	Upsert(ctx context.Context, entry domain.IndexEntry) error
	Remove(ctx context.Context, documentID string) error
	Entries() []domain.IndexEntry
}

// RemoteRetrieval is the remote retrieval backend. Calls never return errors,
// only typed outcomes.
type RemoteRetrieval interface {
	IndexDocument(ctx context.Context, documentID, content string, metadata map[string]any) domain.RemoteIndexResult
	Search(ctx context.Context, query string, limit int) domain.RemoteSearchResult
	DeleteDocument(ctx context.Context, documentID string) domain.RemoteIndexResult
	Health(ctx context.Context) domain.RemoteHealth
}

// AnswerGenerator creates chat answers from retrieved context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, sources []domain.SearchResult) (string, error)
}

// PipelineMetrics observes pipeline runs.
type PipelineMetrics interface {
	StartRun()
	FinishRun(status domain.ProcessingStatus, durationSeconds float64)
	ObserveStage(stage string, status domain.StepStatus)
}

// RetrievalMetrics observes index and search calls by serving path.
type RetrievalMetrics interface {
	ObserveIndex(path string, ok bool)
	ObserveSearch(path string, results int, durationSeconds float64)
}
