package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
)

// Client is a thin HTTP client for the notescan API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx reply carrying the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type UploadReply struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

func (c *Client) Upload(ctx context.Context, path string) (*UploadReply, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var reply UploadReply
	if err := c.send(req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) Process(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/process/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Status(ctx context.Context, id string) (*domain.ProcessingResult, error) {
	var out domain.ProcessingResult
	if err := c.doJSON(ctx, http.MethodGet, "/v1/process/"+url.PathEscape(id)+"/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) ([]domain.DocumentView, error) {
	var out struct {
		Documents []domain.DocumentView `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	var out []domain.SearchResult
	payload := map[string]any{"query": query}
	if limit > 0 {
		payload["limit"] = limit
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/search", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Chat(ctx context.Context, message, documentID string) (*domain.ChatReply, error) {
	payload := map[string]any{"message": message}
	if documentID != "" {
		payload["document_id"] = documentID
	}
	var out domain.ChatReply
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download streams an artifact into w and returns the server-side filename.
func (c *Client) Download(ctx context.Context, id string, artifact domain.ArtifactType, w io.Writer) (string, error) {
	path := fmt.Sprintf("/v1/process/%s/download/%s", url.PathEscape(id), artifact)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", decodeAPIError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return artifact.FileName(id), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	if payload.Error == "" {
		payload.Error = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}
