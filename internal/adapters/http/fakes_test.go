package httpadapter

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/notescan/internal/config"
	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/usecase"
)

const testDocID = "3f0c2b8e-5d1a-4c7e-9b2a-1e4f6a7b8c9d"

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	return &domain.Document{
		ID:          testDocID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: testDocID + ".txt",
		SizeBytes:   int64(len(raw)),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (f ingestFake) UploadBatch(ctx context.Context, files []usecase.UploadFile) []usecase.UploadOutcome {
	out := make([]usecase.UploadOutcome, 0, len(files))
	for _, file := range files {
		doc, err := f.Upload(ctx, file.Filename, file.MimeType, file.Body)
		outcome := usecase.UploadOutcome{Filename: file.Filename, Document: doc}
		if err != nil {
			outcome.Error = err.Error()
		}
		out = append(out, outcome)
	}
	return out
}

type triggerFake struct {
	requested []string
	err       error
}

func (f *triggerFake) RequestProcessing(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.requested = append(f.requested, id)
	return nil
}

type statusFake struct {
	result *domain.ProcessingResult
	err    error
}

func (f statusFake) GetProcessingResult(context.Context, string) (*domain.ProcessingResult, error) {
	return f.result, f.err
}

type catalogFake struct {
	docs    []domain.DocumentView
	err     error
	deleted []string
}

func (f *catalogFake) List(context.Context) ([]domain.DocumentView, error) {
	return f.docs, f.err
}

func (f *catalogFake) Get(_ context.Context, id string) (*domain.DocumentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
}

func (f *catalogFake) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type artifactsFake struct {
	content string
	err     error
}

func (f artifactsFake) Open(_ context.Context, id string, artifact domain.ArtifactType) (io.ReadCloser, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), artifact.FileName(id), nil
}

type searcherFake struct {
	results   []domain.SearchResult
	lastLimit int
}

func (f *searcherFake) Search(_ context.Context, _ string, limit int) []domain.SearchResult {
	f.lastLimit = limit
	if len(f.results) > limit {
		return f.results[:limit]
	}
	return f.results
}

func (f *searcherFake) Suggest(_ context.Context, prefix string, _ int) []string {
	return []string{prefix + " notes"}
}

func (f *searcherFake) RemoteHealth() domain.RemoteHealth { return domain.RemoteNotConfigured }

type chatFake struct{}

func (chatFake) Chat(_ context.Context, message, documentID string) (*domain.ChatReply, error) {
	sources := []string{}
	if documentID != "" {
		sources = append(sources, documentID)
	}
	return &domain.ChatReply{Response: "echo: " + message, Sources: sources}, nil
}

type routerFixture struct {
	trigger  *triggerFake
	catalog  *catalogFake
	searcher *searcherFake
	svc      Services
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		trigger:  &triggerFake{},
		catalog:  &catalogFake{},
		searcher: &searcherFake{},
	}
	f.svc = Services{
		Ingest:    ingestFake{},
		Trigger:   f.trigger,
		Status:    statusFake{result: &domain.ProcessingResult{DocumentID: testDocID, Status: domain.StatusPending}},
		Catalog:   f.catalog,
		Artifacts: artifactsFake{content: "%PDF-1.4"},
		Search:    f.searcher,
		Chat:      chatFake{},
	}
	return f
}

func (f *routerFixture) handler(cfg config.Config) http.Handler {
	if cfg.SearchDefaultLimit == 0 {
		cfg.SearchDefaultLimit = 10
	}
	return NewRouter(cfg, f.svc).Handler()
}
