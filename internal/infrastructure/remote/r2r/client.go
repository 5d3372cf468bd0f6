package r2r

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
)

type Options struct {
	Timeout    time.Duration
	Resilience *resilience.Executor
}

// Client talks to a retrieval service exposing the documents/search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Resilience,
	}
}

type indexRequest struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results []struct {
		DocumentID string         `json:"document_id"`
		Content    string         `json:"content"`
		Text       string         `json:"text"`
		Metadata   map[string]any `json:"metadata"`
		Score      float64        `json:"score"`
	} `json:"results"`
}

func (c *Client) IndexDocument(ctx context.Context, documentID, content string, metadata map[string]any) domain.RemoteIndexResult {
	req := indexRequest{DocumentID: documentID, Content: content, Metadata: metadata}
	err := c.do(ctx, http.MethodPost, "/api/v1/documents", req, nil, "index")
	return domain.RemoteIndexResult{Status: resilience.RemoteStatusOf(err), Err: err}
}

func (c *Client) Search(ctx context.Context, query string, limit int) domain.RemoteSearchResult {
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", searchRequest{Query: query, Limit: limit}, &resp, "search"); err != nil {
		return domain.RemoteSearchResult{Status: resilience.RemoteStatusOf(err), Err: err}
	}

	hits := make([]domain.RemoteHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.DocumentID == "" {
			continue
		}
		content := r.Content
		if content == "" {
			content = r.Text
		}
		hits = append(hits, domain.RemoteHit{
			DocumentID: r.DocumentID,
			Content:    content,
			Metadata:   r.Metadata,
			Score:      r.Score,
		})
	}
	return domain.RemoteSearchResult{Status: domain.RemoteOK, Hits: hits}
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) domain.RemoteIndexResult {
	err := c.do(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(documentID), nil, nil, "delete")
	var se *resilience.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return domain.RemoteIndexResult{Status: domain.RemoteOK}
	}
	return domain.RemoteIndexResult{Status: resilience.RemoteStatusOf(err), Err: err}
}

func (c *Client) Health(ctx context.Context) domain.RemoteHealth {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
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
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
	}

	call := func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("r2r %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewStatusError("r2r", operation, resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode r2r %s response: %w: %v", operation, resilience.ErrInvalidResponse, err)
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "r2r."+operation, call, resilience.ClassifyHTTP)
}
