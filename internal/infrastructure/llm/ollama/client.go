package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
)

type Options struct {
	GenerateModel string
	EmbedModel    string
	// VisionModel enables enrichment when set.
	VisionModel string
	Timeout     time.Duration
	Resilience  *resilience.Executor
}

type Client struct {
	baseURL     string
	genModel    string
	embedModel  string
	visionModel string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		genModel:    opts.GenerateModel,
		embedModel:  opts.EmbedModel,
		visionModel: opts.VisionModel,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		executor:    opts.Resilience,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
}

// VisionEnricher sends the page image and its OCR text to a multimodal model.
type VisionEnricher struct {
	client *Client
}

func NewVisionEnricher(client *Client) *VisionEnricher {
	return &VisionEnricher{client: client}
}

func (v *VisionEnricher) Enabled() bool {
	return v != nil && v.client != nil && strings.TrimSpace(v.client.visionModel) != ""
}

func (v *VisionEnricher) Enrich(ctx context.Context, filePath, ocrText string) (domain.Enrichment, error) {
	if !v.Enabled() {
		return domain.Enrichment{}, domain.WrapError(domain.ErrUnsupported, "enrich", errors.New("vision model not configured"))
	}
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(filePath))]; !ok {
		return domain.Enrichment{}, domain.WrapError(domain.ErrUnsupported, "enrich", fmt.Errorf("%s is not an image", filepath.Base(filePath)))
	}
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("read image: %w", err)
	}

	text, err := v.client.generate(ctx, map[string]any{
		"model":  v.client.visionModel,
		"prompt": buildEnrichmentPrompt(ocrText),
		"images": []string{base64.StdEncoding.EncodeToString(raw)},
		"stream": false,
	})
	if err != nil {
		return domain.Enrichment{}, err
	}
	return domain.Enrichment{EnhancedText: text, Hints: detectStructure(text)}, nil
}

func detectStructure(text string) domain.StructureHints {
	lower := strings.ToLower(text)
	return domain.StructureHints{
		HasEquations: strings.Contains(lower, "equation") || strings.Contains(text, "="),
		HasDiagrams:  strings.Contains(lower, "diagram") || strings.Contains(lower, "figure"),
		HasTables:    strings.Contains(lower, "table"),
	}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, results []domain.SearchResult) (string, error) {
	return g.client.generate(ctx, map[string]any{
		"model":  g.client.genModel,
		"prompt": buildAnswerPrompt(question, results),
		"stream": false,
	})
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
