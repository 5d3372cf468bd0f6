package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/notescan/internal/core/ports"
)

type ProcessTriggerUseCase struct {
	repo  ports.DocumentRepository
	queue ports.MessageQueue
}

func NewProcessTriggerUseCase(repo ports.DocumentRepository, queue ports.MessageQueue) *ProcessTriggerUseCase {
	return &ProcessTriggerUseCase{repo: repo, queue: queue}
}

// RequestProcessing enqueues a pipeline run for an uploaded document.
func (uc *ProcessTriggerUseCase) RequestProcessing(ctx context.Context, documentID string) error {
	if err := validateDocumentID("request processing", documentID); err != nil {
		return err
	}
	if _, err := uc.repo.GetByID(ctx, documentID); err != nil {
		return err
	}
	if err := uc.queue.PublishProcessRequested(ctx, documentID); err != nil {
		return fmt.Errorf("publish process request: %w", err)
	}
	return nil
}
