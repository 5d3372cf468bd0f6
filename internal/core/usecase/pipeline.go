package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/ports"
)

// DocumentIndexer is the slice of the retrieval service the pipeline needs.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, documentID, content string, metadata map[string]any) bool
}

type PipelineDeps struct {
	Documents ports.DocumentRepository
	Results   ports.ResultStore
	Uploads   ports.FileStore
	Artifacts ports.FileStore
	Storage   ports.ObjectStorage
	Extractor ports.TextExtractor
	// Enricher and LatexRenderer are optional.
	Enricher      ports.Enricher
	PDFRenderer   ports.Renderer
	LatexRenderer ports.Renderer
	Indexer       DocumentIndexer
	Metrics       ports.PipelineMetrics
}

type PipelineOptions struct {
	StageTimeout time.Duration
}

// Pipeline drives one document through store, extract, enrich, render and
// index. Only extraction failure fails a run; every other stage degrades.
type Pipeline struct {
	deps  PipelineDeps
	opts  PipelineOptions
	group singleflight.Group
	now   func() time.Time
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = 30 * time.Second
	}
	return &Pipeline{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// errExtractionFailed ends a run early.
var errExtractionFailed = errors.New("text extraction failed")

// Process runs the pipeline for documentID and returns the terminal record.
// Concurrent calls for the same id share one run.
func (p *Pipeline) Process(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	if err := validateDocumentID("process document", documentID); err != nil {
		return nil, err
	}

	v, err, shared := p.group.Do(documentID, func() (any, error) {
		return p.run(context.WithoutCancel(ctx), documentID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("pipeline_run_joined", "document_id", documentID)
	}
	return v.(*domain.ProcessingResult).Clone(), nil
}

// GetProcessingResult returns the stored record, a pending record when the
// upload exists but was never processed, or ErrDocumentNotFound.
func (p *Pipeline) GetProcessingResult(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	if err := validateDocumentID("get processing result", documentID); err != nil {
		return nil, err
	}

	result, err := p.deps.Results.Get(ctx, documentID)
	if err == nil {
		return result, nil
	}
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		return nil, fmt.Errorf("load processing result: %w", err)
	}

	if _, err := p.deps.Documents.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return &domain.ProcessingResult{
		DocumentID: documentID,
		Status:     domain.StatusPending,
		Steps:      domain.Steps{},
	}, nil
}

func (p *Pipeline) run(ctx context.Context, documentID string) (*domain.ProcessingResult, error) {
	doc, err := p.deps.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	sourcePath := p.deps.Uploads.Path(doc.StoragePath)
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", fmt.Errorf("uploaded file unreadable: %w", err))
	}

	result := &domain.ProcessingResult{
		DocumentID: documentID,
		Status:     domain.StatusProcessing,
		Steps:      domain.Steps{},
	}
	if err := p.deps.Results.Save(ctx, result); err != nil {
		slog.Warn("pipeline_status_save_failed", "document_id", documentID, "status", result.Status, "error", err)
	}

	start := time.Now()
	if p.deps.Metrics != nil {
		p.deps.Metrics.StartRun()
	}
	slog.Info("pipeline_started", "document_id", documentID, "filename", doc.Filename)

	summary, runErr := p.execute(ctx, doc, sourcePath, result)
	if runErr != nil {
		result.Status = domain.StatusFailed
		result.Error = runErr.Error()
		result.Summary = nil
	} else {
		result.Status = domain.StatusCompleted
		result.Summary = summary
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.FinishRun(result.Status, time.Since(start).Seconds())
	}
	slog.Info("pipeline_finished",
		"document_id", documentID,
		"status", result.Status,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		"error", result.Error,
	)

	if err := p.saveTerminal(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// saveTerminal persists the final record, retrying once. When both writes
// fail it tries to leave a failed record so the processing one never sticks.
func (p *Pipeline) saveTerminal(ctx context.Context, result *domain.ProcessingResult) error {
	err := p.deps.Results.Save(ctx, result)
	if err == nil {
		return nil
	}
	slog.Warn("pipeline_result_save_retry", "document_id", result.DocumentID, "status", result.Status, "error", err)
	if err = p.deps.Results.Save(ctx, result); err == nil {
		return nil
	}

	saveErr := fmt.Errorf("save processing result: %w", err)
	failed := &domain.ProcessingResult{
		DocumentID: result.DocumentID,
		Status:     domain.StatusFailed,
		Steps:      result.Steps,
		Error:      saveErr.Error(),
	}
	if fallbackErr := p.deps.Results.Save(ctx, failed); fallbackErr != nil {
		slog.Error("pipeline_result_save_failed", "document_id", result.DocumentID, "error", fallbackErr)
	}
	return saveErr
}

// execute runs the stages. A panic in any collaborator fails the run instead
// of crashing the worker.
func (p *Pipeline) execute(ctx context.Context, doc *domain.Document, sourcePath string, result *domain.ProcessingResult) (summary *domain.Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline_panic", "document_id", doc.ID, "panic", r)
			summary = nil
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	storageURL := p.storeOriginal(ctx, sourcePath, result)

	extraction, err := p.extractText(ctx, doc, sourcePath, result)
	if err != nil {
		return nil, err
	}

	finalText := p.enrich(ctx, sourcePath, extraction.Text, result)
	processedAt := p.now()

	rendered := p.renderArtifacts(ctx, doc, finalText, extraction, processedAt, result)

	p.index(ctx, doc, finalText, extraction, processedAt, storageURL, sourcePath, rendered.pdfURL, result)

	return &domain.Summary{
		TextLength:   utf8.RuneCountInString(finalText),
		Confidence:   extraction.Confidence,
		HasMath:      extraction.HasMath,
		StorageURL:   storageURL,
		PDFURL:       rendered.pdfURL,
		LatexURL:     rendered.latexURL,
		OriginalFile: doc.Filename,
	}, nil
}

func (p *Pipeline) storeOriginal(ctx context.Context, sourcePath string, result *domain.ProcessingResult) string {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()

	url, err := p.deps.Storage.Upload(callCtx, sourcePath)
	if err != nil {
		p.record(result, domain.StepOutcome{Stage: domain.StageStoreOriginal, Status: domain.StepFailed, Error: err.Error()})
		return ""
	}
	p.record(result, domain.StepOutcome{Stage: domain.StageStoreOriginal, Status: domain.StepCompleted, URL: url})
	return url
}

func (p *Pipeline) extractText(ctx context.Context, doc *domain.Document, sourcePath string, result *domain.ProcessingResult) (domain.Extraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()

	extraction, err := p.deps.Extractor.Extract(callCtx, sourcePath)
	if err == nil && strings.TrimSpace(extraction.Text) == "" {
		err = errors.New("no text found")
	}
	if err != nil {
		p.record(result, domain.StepOutcome{Stage: domain.StageExtractText, Status: domain.StepFailed, Error: err.Error()})
		return domain.Extraction{}, fmt.Errorf("%w: %v", errExtractionFailed, err)
	}

	step := domain.StepOutcome{
		Stage:      domain.StageExtractText,
		Status:     domain.StepCompleted,
		TextLength: utf8.RuneCountInString(extraction.Text),
		Confidence: &extraction.Confidence,
		HasMath:    &extraction.HasMath,
	}
	name := domain.ArtifactText.FileName(doc.ID)
	if _, err := p.deps.Artifacts.Save(ctx, name, strings.NewReader(extraction.Text)); err != nil {
		slog.Warn("ocr_text_save_failed", "document_id", doc.ID, "error", err)
	} else {
		step.Path = p.deps.Artifacts.Path(name)
	}
	p.record(result, step)
	return extraction, nil
}

// enrich returns the text later stages should use: the enhanced text on
// success, the OCR text otherwise.
func (p *Pipeline) enrich(ctx context.Context, sourcePath, ocrText string, result *domain.ProcessingResult) string {
	if p.deps.Enricher == nil || !p.deps.Enricher.Enabled() {
		p.record(result, domain.StepOutcome{Stage: domain.StageEnrich, Status: domain.StepSkipped, Reason: "enrichment not configured"})
		return ocrText
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()

	enrichment, err := p.deps.Enricher.Enrich(callCtx, sourcePath, ocrText)
	switch {
	case domain.IsKind(err, domain.ErrUnsupported):
		p.record(result, domain.StepOutcome{Stage: domain.StageEnrich, Status: domain.StepSkipped, Reason: err.Error()})
		return ocrText
	case err != nil:
		p.record(result, domain.StepOutcome{Stage: domain.StageEnrich, Status: domain.StepFailed, Error: err.Error()})
		return ocrText
	case strings.TrimSpace(enrichment.EnhancedText) == "":
		p.record(result, domain.StepOutcome{Stage: domain.StageEnrich, Status: domain.StepFailed, Error: "empty enhanced text"})
		return ocrText
	}

	hints := enrichment.Hints
	p.record(result, domain.StepOutcome{
		Stage:      domain.StageEnrich,
		Status:     domain.StepCompleted,
		TextLength: utf8.RuneCountInString(enrichment.EnhancedText),
		Hints:      &hints,
	})
	return enrichment.EnhancedText
}

type renderedArtifacts struct {
	pdfURL   string
	latexURL string
}

func (p *Pipeline) renderArtifacts(
	ctx context.Context,
	doc *domain.Document,
	text string,
	extraction domain.Extraction,
	processedAt time.Time,
	result *domain.ProcessingResult,
) renderedArtifacts {
	req := domain.RenderRequest{
		DocumentID: doc.ID,
		Title:      doc.Title(),
		Text:       text,
		Metadata: []domain.MetadataField{
			{Label: "Document ID", Value: doc.ID},
			{Label: "Processed", Value: processedAt.Format("2006-01-02 15:04")},
			{Label: "OCR Confidence", Value: fmt.Sprintf("%.1f%%", extraction.Confidence*100)},
			{Label: "Contains Math", Value: yesNo(extraction.HasMath)},
			{Label: "Original File", Value: doc.Filename},
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	pdfPath, err := p.deps.PDFRenderer.Render(callCtx, req)
	cancel()
	if err != nil {
		p.record(result, domain.StepOutcome{Stage: domain.StageRenderArtifacts, Status: domain.StepFailed, Error: err.Error()})
		return renderedArtifacts{}
	}

	var out renderedArtifacts
	step := domain.StepOutcome{Stage: domain.StageRenderArtifacts, Status: domain.StepCompleted, Path: pdfPath}
	if url, err := p.upload(ctx, pdfPath); err != nil {
		step.Reason = "pdf upload failed: " + err.Error()
	} else {
		step.URL = url
		out.pdfURL = url
	}

	if p.deps.LatexRenderer != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
		latexPath, err := p.deps.LatexRenderer.Render(callCtx, req)
		cancel()
		if err != nil {
			slog.Warn("latex_render_failed", "document_id", doc.ID, "error", err)
		} else {
			step.LatexPath = latexPath
			if url, err := p.upload(ctx, latexPath); err == nil {
				step.LatexURL = url
				out.latexURL = url
			}
		}
	}

	p.record(result, step)
	return out
}

func (p *Pipeline) index(
	ctx context.Context,
	doc *domain.Document,
	text string,
	extraction domain.Extraction,
	processedAt time.Time,
	storageURL, sourcePath, pdfURL string,
	result *domain.ProcessingResult,
) {
	originalURL := storageURL
	if originalURL == "" {
		originalURL = sourcePath
	}
	metadata := map[string]any{
		"title":          doc.Title(),
		"document_id":    doc.ID,
		"confidence":     extraction.Confidence,
		"has_math":       extraction.HasMath,
		"processed_date": processedAt.Format(time.RFC3339),
		"original_url":   originalURL,
	}
	if pdfURL != "" {
		metadata["pdf_url"] = pdfURL
	}

	if !p.deps.Indexer.IndexDocument(ctx, doc.ID, text, metadata) {
		p.record(result, domain.StepOutcome{Stage: domain.StageIndex, Status: domain.StepFailed, Error: "indexing failed on remote and local paths"})
		return
	}
	p.record(result, domain.StepOutcome{Stage: domain.StageIndex, Status: domain.StepCompleted})
}

func (p *Pipeline) upload(ctx context.Context, path string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.StageTimeout)
	defer cancel()
	return p.deps.Storage.Upload(callCtx, path)
}

func (p *Pipeline) record(result *domain.ProcessingResult, step domain.StepOutcome) {
	result.Record(step)
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(step.Stage, step.Status)
	}
	attrs := []any{"document_id", result.DocumentID, "stage", step.Stage, "status", step.Status}
	if step.Error != "" {
		attrs = append(attrs, "error", step.Error)
		slog.Warn("pipeline_stage", attrs...)
		return
	}
	slog.Info("pipeline_stage", attrs...)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
