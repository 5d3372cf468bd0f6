package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

// DocumentRemover is the slice of the retrieval service used on delete.
type DocumentRemover interface {
	RemoveDocument(ctx context.Context, documentID string) error
}

type DocumentCatalogUseCase struct {
	repo      ports.DocumentRepository
	results   ports.ResultStore
	uploads   ports.FileStore
	artifacts ports.FileStore
	storage   ports.ObjectStorage
	index     DocumentRemover
}

func NewDocumentCatalogUseCase(
	repo ports.DocumentRepository,
	results ports.ResultStore,
	uploads ports.FileStore,
	artifacts ports.FileStore,
	storage ports.ObjectStorage,
	index DocumentRemover,
) *DocumentCatalogUseCase {
	return &DocumentCatalogUseCase{
		repo:      repo,
		results:   results,
		uploads:   uploads,
		artifacts: artifacts,
		storage:   storage,
		index:     index,
	}
}

// List returns all uploads, newest first, with their derived status.
func (uc *DocumentCatalogUseCase) List(ctx context.Context) ([]domain.DocumentView, error) {
	docs, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	out := make([]domain.DocumentView, 0, len(docs))
	for _, doc := range docs {
		view := domain.DocumentView{Document: doc, Status: domain.StatusPending}
		if result, err := uc.results.Get(ctx, doc.ID); err == nil {
			view.Status = result.Status
			view.Summary = result.Summary
		}
		out = append(out, view)
	}
	return out, nil
}

func (uc *DocumentCatalogUseCase) Get(ctx context.Context, id string) (*domain.DocumentView, error) {
	if err := validateDocumentID("get document", id); err != nil {
		return nil, err
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &domain.DocumentView{Document: *doc, Status: domain.StatusPending}
	result, err := uc.results.Get(ctx, id)
	switch {
	case err == nil:
		view.Status = result.Status
		view.Summary = result.Summary
	case !domain.IsKind(err, domain.ErrResultNotFound):
		return nil, fmt.Errorf("load processing result: %w", err)
	}

	if rc, err := uc.artifacts.Open(ctx, domain.ArtifactText.FileName(id)); err == nil {
		raw, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr == nil {
			view.OCRText = string(raw)
		}
	}
	return view, nil
}

// Delete removes the upload and everything derived from it. Cleanup of
// derived data is best-effort; the registry entry is removed last.
func (uc *DocumentCatalogUseCase) Delete(ctx context.Context, id string) error {
	if err := validateDocumentID("delete document", id); err != nil {
		return err
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.index.RemoveDocument(ctx, id); err != nil {
		slog.Warn("document_delete_index_failed", "document_id", id, "error", err)
	}

	if result, err := uc.results.Get(ctx, id); err == nil && result.Summary != nil {
		for _, url := range []string{result.Summary.StorageURL, result.Summary.PDFURL, result.Summary.LatexURL} {
			if url == "" {
				continue
			}
			if err := uc.storage.Delete(ctx, url); err != nil {
				slog.Warn("document_delete_object_failed", "document_id", id, "url", url, "error", err)
			}
		}
	}

	for _, artifact := range []domain.ArtifactType{domain.ArtifactPDF, domain.ArtifactText, domain.ArtifactLatex} {
		if err := uc.artifacts.Remove(ctx, artifact.FileName(id)); err != nil {
			slog.Warn("document_delete_artifact_failed", "document_id", id, "artifact", artifact, "error", err)
		}
	}
	if err := uc.uploads.Remove(ctx, doc.StoragePath); err != nil {
		slog.Warn("document_delete_upload_failed", "document_id", id, "error", err)
	}
	if err := uc.results.Delete(ctx, id); err != nil && !domain.IsKind(err, domain.ErrResultNotFound) {
		return fmt.Errorf("delete processing result: %w", err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	return nil
}
