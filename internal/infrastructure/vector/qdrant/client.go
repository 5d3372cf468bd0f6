package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
)

type Options struct {
	Timeout    time.Duration
	Resilience *resilience.Executor
}

// Client stores one point per document in a qdrant collection and serves
// as the remote retrieval backend.
type Client struct {
	baseURL    string
	collection string
	embeddings ports.EmbeddingProvider
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, embeddings ports.EmbeddingProvider, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		embeddings: embeddings,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Resilience,
	}
}

// PointID derives a stable point id so re-indexing overwrites the same point.
func PointID(documentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notescan:"+documentID)).String()
}

func (c *Client) IndexDocument(ctx context.Context, documentID, content string, metadata map[string]any) domain.RemoteIndexResult {
	vector, err := c.embeddings.EmbedDocument(ctx, content)
	if err != nil {
		return domain.RemoteIndexResult{Status: domain.RemoteInvalid, Err: fmt.Errorf("embed document: %w", err)}
	}
	if err := c.ensureCollection(ctx, len(vector)); err != nil {
		return domain.RemoteIndexResult{Status: resilience.RemoteStatusOf(err), Err: err}
	}

	payload := map[string]any{
		"document_id": documentID,
		"content":     content,
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      PointID(documentID),
			"vector":  vector,
			"payload": payload,
		}},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	err = c.do(ctx, http.MethodPut, path, body, nil, "upsert")
	return domain.RemoteIndexResult{Status: resilience.RemoteStatusOf(err), Err: err}
}

func (c *Client) Search(ctx context.Context, query string, limit int) domain.RemoteSearchResult {
	vector, err := c.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return domain.RemoteSearchResult{Status: domain.RemoteInvalid, Err: fmt.Errorf("embed query: %w", err)}
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp, "search"); err != nil {
		return domain.RemoteSearchResult{Status: resilience.RemoteStatusOf(err), Err: err}
	}

	hits := make([]domain.RemoteHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		id := stringPayload(r.Payload, "document_id")
		if id == "" {
			continue
		}
		meta, _ := r.Payload["metadata"].(map[string]any)
		hits = append(hits, domain.RemoteHit{
			DocumentID: id,
			Content:    stringPayload(r.Payload, "content"),
			Metadata:   meta,
			Score:      r.Score,
		})
	}
	return domain.RemoteSearchResult{Status: domain.RemoteOK, Hits: hits}
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) domain.RemoteIndexResult {
	body := map[string]any{"points": []string{PointID(documentID)}}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection)
	err := c.do(ctx, http.MethodPost, path, body, nil, "delete")
	return domain.RemoteIndexResult{Status: resilience.RemoteStatusOf(err), Err: err}
}

func (c *Client) Health(ctx context.Context) domain.RemoteHealth {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return domain.RemoteUnreachable
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RemoteUnreachable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return domain.RemoteUnreachable
	}
	return domain.RemoteConnected
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewStatusError("qdrant", operation, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant %s response: %w: %v", operation, resilience.ErrInvalidResponse, err)
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "qdrant."+operation, call, resilience.ClassifyHTTP)
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil, "ensure_collection")
	if err != nil {
		// 409 means the collection already exists.
		var se *resilience.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusConflict {
			return err
		}
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
