package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed)); !c.Retryable || !c.RecordFailure {
		t.Fatalf("expected closed connection to be retryable, got %+v", c)
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("expected cancellation to be ignored, got %+v", c)
	}
	if c := classifyNATSError(nats.ErrBadSubject); c.Retryable {
		t.Fatalf("expected bad subject to be permanent, got %+v", c)
	}
}

func TestPublishErrorsBecomeTemporary(t *testing.T) {
	err := resilience.WrapTemporary("nats publish", fmt.Errorf("nats publish: %w", nats.ErrNoServers), classifyNATSError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	plain := errors.New("bad payload")
	if resilience.WrapTemporary("nats publish", plain, classifyNATSError) != plain {
		t.Fatalf("expected permanent error unchanged")
	}
}
