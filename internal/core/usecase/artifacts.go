package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

type ArtifactUseCase struct {
	repo      ports.DocumentRepository
	results   ports.ResultStore
	artifacts ports.FileStore
}

func NewArtifactUseCase(repo ports.DocumentRepository, results ports.ResultStore, artifacts ports.FileStore) *ArtifactUseCase {
	return &ArtifactUseCase{repo: repo, results: results, artifacts: artifacts}
}

// Open returns the artifact content and its download file name. The result
// artifact is served from the result store.
func (uc *ArtifactUseCase) Open(ctx context.Context, documentID string, artifact domain.ArtifactType) (io.ReadCloser, string, error) {
	if err := validateDocumentID("open artifact", documentID); err != nil {
		return nil, "", err
	}
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return nil, "", err
	}
	name := artifact.FileName(documentID)
	if name == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "open artifact", fmt.Errorf("unknown artifact %q", artifact))
	}

	if artifact == domain.ArtifactResult {
		result, err := uc.results.Get(ctx, documentID)
		if err != nil {
			if domain.IsKind(err, domain.ErrResultNotFound) {
				return nil, "", domain.WrapError(domain.ErrDocumentNotFound, "open artifact", errors.New("document not processed yet"))
			}
			return nil, "", fmt.Errorf("load processing result: %w", err)
		}
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode processing result: %w", err)
		}
		return io.NopCloser(bytes.NewReader(raw)), name, nil
	}

	rc, err := uc.artifacts.Open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return rc, name, nil
}
