package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

var DefaultAllowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".pdf", ".txt"}

type IngestOptions struct {
	AllowedExtensions []string
	MaxBytes          int64
	AutoProcess       bool
}

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	uploads ports.FileStore
	trigger ports.ProcessTrigger
	opts    IngestOptions
	allowed map[string]struct{}
}

// NewIngestDocumentUseCase wires uploads. trigger is only used when
// AutoProcess is set and may be nil otherwise.
func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	uploads ports.FileStore,
	trigger ports.ProcessTrigger,
	opts IngestOptions,
) *IngestDocumentUseCase {
	if len(opts.AllowedExtensions) == 0 {
		opts.AllowedExtensions = DefaultAllowedExtensions
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	allowed := make(map[string]struct{}, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &IngestDocumentUseCase{
		repo:    repo,
		uploads: uploads,
		trigger: trigger,
		opts:    opts,
		allowed: allowed,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := uc.allowed[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("file type %q not allowed", ext))
	}

	id := uuid.NewString()
	storageKey := id + ext

	written, err := uc.uploads.Save(ctx, storageKey, io.LimitReader(body, uc.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	if written == 0 || written > uc.opts.MaxBytes {
		_ = uc.uploads.Remove(ctx, storageKey)
		if written == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty file"))
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("file exceeds %d bytes", uc.opts.MaxBytes))
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    sanitizeFilename(filename),
		MimeType:    mimeType,
		StoragePath: storageKey,
		SizeBytes:   written,
		CreatedAt:   time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		_ = uc.uploads.Remove(ctx, storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if uc.opts.AutoProcess && uc.trigger != nil {
		if err := uc.trigger.RequestProcessing(ctx, doc.ID); err != nil {
			slog.Warn("auto_process_request_failed", "document_id", doc.ID, "error", err)
		}
	}
	return doc, nil
}

type UploadFile struct {
	Filename string
	MimeType string
	Body     io.Reader
}

type UploadOutcome struct {
	Filename string           `json:"filename"`
	Document *domain.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// UploadBatch uploads each file independently; one rejected file does not
// affect the others.
func (uc *IngestDocumentUseCase) UploadBatch(ctx context.Context, files []UploadFile) []UploadOutcome {
	out := make([]UploadOutcome, 0, len(files))
	for _, f := range files {
		doc, err := uc.Upload(ctx, f.Filename, f.MimeType, f.Body)
		outcome := UploadOutcome{Filename: f.Filename, Document: doc}
		if err != nil {
			outcome.Error = err.Error()
		}
		out = append(out, outcome)
	}
	return out
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
