package gochannel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/kirillkom/notescan/internal/infrastructure/queue"
)

// Queue is the in-process process-request bus used when the API and the
// pipeline share one binary.
type Queue struct {
	pubSub *gochannel.GoChannel
	topic  string

	readyOnce sync.Once
	ready     chan struct{}
}

func New(topic string, bufferSize int64) *Queue {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: bufferSize},
		watermill.NewStdLogger(false, false),
	)
	return &Queue{pubSub: pubSub, topic: topic, ready: make(chan struct{})}
}

func (q *Queue) Close() error {
	return q.pubSub.Close()
}

// Ready is closed once a subscriber is attached.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) PublishProcessRequested(_ context.Context, documentID string) error {
	payload, err := queue.EncodeProcessRequest(documentID)
	if err != nil {
		return err
	}
	if err := q.pubSub.Publish(q.topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("publish process request: %w", err)
	}
	return nil
}

// SubscribeProcessRequested blocks until ctx is done. Every message is
// acked once handed to handler; failures are logged, not redelivered.
func (q *Queue) SubscribeProcessRequested(ctx context.Context, handler func(context.Context, string) error) error {
	messages, err := q.pubSub.Subscribe(ctx, q.topic)
	if err != nil {
		return fmt.Errorf("subscribe process requests: %w", err)
	}
	q.readyOnce.Do(func() { close(q.ready) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			q.dispatch(ctx, msg, handler)
		}
	}
}

func (q *Queue) dispatch(ctx context.Context, msg *message.Message, handler func(context.Context, string) error) {
	defer msg.Ack()
	req, err := queue.DecodeProcessRequest(msg.Payload)
	if err != nil {
		slog.Warn("queue_message_dropped", "topic", q.topic, "message_id", msg.UUID, "error", err)
		return
	}
	if err := handler(ctx, req.DocumentID); err != nil {
		slog.Error("queue_handler_failed", "document_id", req.DocumentID, "error", err)
	}
}
