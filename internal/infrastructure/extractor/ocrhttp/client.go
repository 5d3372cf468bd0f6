package ocrhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
)

// Client talks to an OCR service that accepts a multipart image upload on
// /ocr and answers with recognized text blocks.
type Client struct {
	baseURL    string
	languages  string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Languages  string
	Timeout    time.Duration
	Resilience *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Languages == "" {
		opts.Languages = "en"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		languages:  opts.Languages,
		httpClient: &http.Client{Timeout: opts.Timeout},
		executor:   opts.Resilience,
	}
}

type Block struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Text       string
	Confidence float64
}

// Extract adapts Recognize to the text extractor port.
func (c *Client) Extract(ctx context.Context, imagePath string) (domain.Extraction, error) {
	res, err := c.Recognize(ctx, imagePath)
	if err != nil {
		return domain.Extraction{}, err
	}
	return domain.Extraction{Text: res.Text, Confidence: res.Confidence}, nil
}

func (c *Client) Recognize(ctx context.Context, imagePath string) (Result, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	body, contentType, err := buildForm(filepath.Base(imagePath), raw, c.languages)
	if err != nil {
		return Result{}, err
	}

	var response struct {
		Results []Block `json:"results"`
	}
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create ocr request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ocr request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return resilience.NewStatusError("ocr", "recognize", resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return fmt.Errorf("decode ocr response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "ocr.recognize", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return Result{}, resilience.WrapTemporary("ocr recognize", err, resilience.ClassifyHTTP)
	}
	return merge(response.Results), nil
}

// merge joins block texts with spaces and averages their confidences.
func merge(blocks []Block) Result {
	texts := make([]string, 0, len(blocks))
	var sum float64
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			texts = append(texts, t)
		}
		sum += b.Confidence
	}
	out := Result{Text: strings.Join(texts, " ")}
	if len(blocks) > 0 {
		out.Confidence = min(max(sum/float64(len(blocks)), 0), 1)
	}
	return out
}

func buildForm(filename string, content []byte, languages string) ([]byte, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(content)); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.WriteField("languages", languages); err != nil {
		return nil, "", fmt.Errorf("write form field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}
