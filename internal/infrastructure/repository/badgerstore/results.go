package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// resultRecord keeps the processing result as its JSON wire form so the
// ordered step map survives storage unchanged.
type resultRecord struct {
	DocumentID string
	Status     string
	Payload    []byte
	UpdatedAt  time.Time
}

type ResultStore struct {
	db *DB
}

func NewResultStore(db *DB) *ResultStore {
	return &ResultStore{db: db}
}

// Save replaces the record in a single badger transaction.
func (s *ResultStore) Save(_ context.Context, result *domain.ProcessingResult) error {
	if result == nil || result.DocumentID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save result", errors.New("document id is required"))
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	rec := resultRecord{
		DocumentID: result.DocumentID,
		Status:     string(result.Status),
		Payload:    payload,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.db.store.Upsert(result.DocumentID, &rec); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(_ context.Context, documentID string) (*domain.ProcessingResult, error) {
	var rec resultRecord
	if err := s.db.store.Get(documentID, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	var result domain.ProcessingResult
	if err := json.Unmarshal(rec.Payload, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

func (s *ResultStore) Delete(_ context.Context, documentID string) error {
	if err := s.db.store.Delete(documentID, &resultRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}
