package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/notescan/internal/core/ports"
)

// ProcessConsumer drains process requests from the queue into the pipeline
// with at most workers runs in flight.
type ProcessConsumer struct {
	queue     ports.MessageQueue
	processor ports.DocumentProcessor
	workers   int
}

func NewProcessConsumer(queue ports.MessageQueue, processor ports.DocumentProcessor, workers int) *ProcessConsumer {
	if workers <= 0 {
		workers = 2
	}
	return &ProcessConsumer{queue: queue, processor: processor, workers: workers}
}

// Run blocks until ctx is done, then waits for in-flight runs to finish.
func (c *ProcessConsumer) Run(ctx context.Context) error {
	var group errgroup.Group
	group.SetLimit(c.workers)

	err := c.queue.SubscribeProcessRequested(ctx, func(_ context.Context, documentID string) error {
		group.Go(func() error {
			result, err := c.processor.Process(context.WithoutCancel(ctx), documentID)
			if err != nil {
				slog.Error("process_request_failed", "document_id", documentID, "error", err)
				return nil
			}
			slog.Info("process_request_done", "document_id", documentID, "status", result.Status)
			return nil
		})
		return nil
	})
	_ = group.Wait()
	return err
}
