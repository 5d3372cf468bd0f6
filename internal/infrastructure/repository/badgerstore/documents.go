package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("document id is required"))
	}
	if err := r.db.store.Insert(doc.ID, doc); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.WrapError(domain.ErrInvalidInput, "create document", fmt.Errorf("document %s already exists", doc.ID))
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(_ context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.store.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	if err := r.db.store.Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) Delete(_ context.Context, id string) error {
	if err := r.db.store.Delete(id, &domain.Document{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("document %s", id))
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
