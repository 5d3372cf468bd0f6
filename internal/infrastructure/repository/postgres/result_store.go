package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// ResultStore keeps one JSONB row per document; saves are single upserts.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Save(ctx context.Context, result *domain.ProcessingResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO processing_results (document_id, status, payload, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (document_id) DO UPDATE
SET status = EXCLUDED.status, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
`, result.DocumentID, string(result.Status), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM processing_results WHERE document_id = $1`, documentID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	var result domain.ProcessingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

func (s *ResultStore) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processing_results WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}
