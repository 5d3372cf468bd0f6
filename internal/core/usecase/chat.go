package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

const chatNotConfiguredReply = "Chat is not configured on this server. Use search to find relevant documents."

// DocumentSearcher is the slice of the retrieval service chat needs.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
}

type ChatOptions struct {
	ContextLimit int
	MaxSources   int
}

type ChatUseCase struct {
	searcher  DocumentSearcher
	generator ports.AnswerGenerator
	opts      ChatOptions
}

// NewChatUseCase wires chat. A nil generator turns chat into a fixed reply.
func NewChatUseCase(searcher DocumentSearcher, generator ports.AnswerGenerator, opts ChatOptions) *ChatUseCase {
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 5
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = 3
	}
	return &ChatUseCase{searcher: searcher, generator: generator, opts: opts}
}

func (uc *ChatUseCase) Chat(ctx context.Context, message, documentID string) (*domain.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("message is required"))
	}
	if uc.generator == nil {
		return &domain.ChatReply{Response: chatNotConfiguredReply, Sources: []string{}}, nil
	}

	results := uc.searcher.Search(ctx, message, uc.opts.ContextLimit)
	results = prioritize(results, strings.TrimSpace(documentID))

	answer, err := uc.generator.GenerateAnswer(ctx, message, results)
	if err != nil {
		return nil, fmt.Errorf("generate chat answer: %w", err)
	}

	sources := make([]string, 0, uc.opts.MaxSources)
	for _, r := range results {
		if len(sources) == uc.opts.MaxSources {
			break
		}
		sources = append(sources, r.DocumentID)
	}
	return &domain.ChatReply{Response: answer, Sources: sources}, nil
}

// prioritize moves results of documentID to the front, keeping relative order.
func prioritize(results []domain.SearchResult, documentID string) []domain.SearchResult {
	if documentID == "" {
		return results
	}
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	for _, r := range results {
		if r.DocumentID != documentID {
			out = append(out, r)
		}
	}
	return out
}
