package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/kirillkom/notescan/internal/adapters/http"
	mcpadapter "github.com/kirillkom/notescan/internal/adapters/mcp"
	"github.com/kirillkom/notescan/internal/config"
	"github.com/kirillkom/notescan/internal/core/ports"
	"github.com/kirillkom/notescan/internal/core/usecase"
	"github.com/kirillkom/notescan/internal/infrastructure/chunking"
	"github.com/kirillkom/notescan/internal/infrastructure/embedding"
	"github.com/kirillkom/notescan/internal/infrastructure/extractor"
	"github.com/kirillkom/notescan/internal/infrastructure/extractor/ocrhttp"
	"github.com/kirillkom/notescan/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/notescan/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/notescan/internal/infrastructure/index/localindex"
	"github.com/kirillkom/notescan/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/notescan/internal/infrastructure/queue/gochannel"
	"github.com/kirillkom/notescan/internal/infrastructure/queue/nats"
	"github.com/kirillkom/notescan/internal/infrastructure/remote/r2r"
	"github.com/kirillkom/notescan/internal/infrastructure/render/latex"
	"github.com/kirillkom/notescan/internal/infrastructure/render/pdfrender"
	"github.com/kirillkom/notescan/internal/infrastructure/repository/badgerstore"
	"github.com/kirillkom/notescan/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/notescan/internal/infrastructure/resilience"
	"github.com/kirillkom/notescan/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/notescan/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/notescan/internal/observability/metrics"
)

const serviceName = "api"

type App struct {
	Config config.Config

	Services  httpadapter.Services
	Consumer  *usecase.ProcessConsumer
	Retrieval *usecase.RetrievalService

	// QueueReady is closed once the consumer is subscribed.
	QueueReady <-chan struct{}

	closers []func() error
}

func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	documents, results, err := app.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	uploads, err := localfs.New(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("init upload dir: %w", err)
	}
	artifacts, err := localfs.New(cfg.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("init processed dir: %w", err)
	}
	bucket, err := localfs.NewBucket(cfg.ObjectDir, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	registry := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPServerMetrics(serviceName, registry)
	pipelineMetrics := metrics.NewPipelineMetrics(serviceName, registry)
	retrievalMetrics := metrics.NewRetrievalMetrics(serviceName, registry)

	resilienceCfg := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		resilienceCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resilienceCfg)

	queue, err := app.openQueue(cfg, executor)
	if err != nil {
		return nil, err
	}

	var ollamaClient *ollama.Client
	if cfg.EmbeddingBackend == "ollama" || cfg.OllamaGenModel != "" || cfg.OllamaVisionModel != "" {
		ollamaClient = ollama.New(cfg.OllamaURL, ollama.Options{
			GenerateModel: cfg.OllamaGenModel,
			EmbedModel:    cfg.OllamaEmbedModel,
			VisionModel:   cfg.OllamaVisionModel,
			Timeout:       cfg.OllamaTimeout,
			Resilience:    executor,
		})
	}

	var embedder ports.Embedder = embedding.NewHashingEmbedder(cfg.EmbeddingDim)
	if cfg.EmbeddingBackend == "ollama" {
		embedder = ollama.NewEmbedder(ollamaClient)
	}
	embeddings := embedding.NewProvider(
		embedder,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedding.Options{QueryCacheTTL: cfg.QueryCacheTTL},
	)

	local, err := localindex.Open(cfg.IndexSnapshot)
	if err != nil {
		return nil, fmt.Errorf("open local index: %w", err)
	}

	retrieval := usecase.NewRetrievalService(
		remoteBackend(cfg, embeddings, executor),
		local,
		embeddings,
		retrievalMetrics,
		usecase.RetrievalOptions{
			DefaultLimit:     cfg.SearchDefaultLimit,
			SnippetHalfWidth: cfg.SnippetHalfWidth,
			RemoteTimeout:    cfg.RemoteTimeout,
		},
	)

	var images ports.TextExtractor
	if cfg.OCRURL != "" {
		images = ocrhttp.New(cfg.OCRURL, ocrhttp.Options{
			Languages:  cfg.OCRLanguages,
			Timeout:    cfg.OCRTimeout,
			Resilience: executor,
		})
	} else {
		slog.Warn("ocr_not_configured", "effect", "image uploads will fail extraction")
	}

	pdfRenderer, err := pdfrender.New(cfg.ProcessedDir)
	if err != nil {
		return nil, fmt.Errorf("init pdf renderer: %w", err)
	}
	var latexRenderer ports.Renderer
	if latex.Available(cfg.LatexBinary) {
		r, err := latex.New(cfg.ProcessedDir, cfg.LatexBinary)
		if err != nil {
			return nil, fmt.Errorf("init latex renderer: %w", err)
		}
		latexRenderer = r
	} else {
		slog.Info("latex_not_available", "binary", cfg.LatexBinary)
	}

	var enricher ports.Enricher
	if cfg.OllamaVisionModel != "" {
		enricher = ollama.NewVisionEnricher(ollamaClient)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Documents:     documents,
		Results:       results,
		Uploads:       uploads,
		Artifacts:     artifacts,
		Storage:       bucket,
		Extractor:     extractor.NewRouter(images, pdftext.NewExtractor(), plaintext.NewExtractor()),
		Enricher:      enricher,
		PDFRenderer:   pdfRenderer,
		LatexRenderer: latexRenderer,
		Indexer:       retrieval,
		Metrics:       pipelineMetrics,
	}, usecase.PipelineOptions{})

	trigger := usecase.NewProcessTriggerUseCase(documents, queue)

	var generator ports.AnswerGenerator
	if cfg.OllamaGenModel != "" {
		generator = ollama.NewGenerator(ollamaClient)
	}

	services := httpadapter.Services{
		Ingest: usecase.NewIngestDocumentUseCase(documents, uploads, trigger, usecase.IngestOptions{
			MaxBytes:    int64(cfg.MaxUploadBytes),
			AutoProcess: cfg.AutoProcess,
		}),
		Trigger:        trigger,
		Status:         pipeline,
		Catalog:        usecase.NewDocumentCatalogUseCase(documents, results, uploads, artifacts, bucket, retrieval),
		Artifacts:      usecase.NewArtifactUseCase(documents, results, artifacts),
		Search:         retrieval,
		Chat:           usecase.NewChatUseCase(retrieval, generator, usecase.ChatOptions{}),
		Metrics:        httpMetrics,
		MetricsHandler: metrics.Handler(registry),
		Files:          http.FileServer(http.Dir(cfg.ObjectDir)),
	}
	if cfg.MCPEnabled {
		services.MCP = mcpadapter.NewServer(retrieval, pipeline).Handler()
	}

	app.Services = services
	app.Consumer = usecase.NewProcessConsumer(queue, pipeline, cfg.ProcessWorkers)
	app.Retrieval = retrieval
	return app, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config) (ports.DocumentRepository, ports.ResultStore, error) {
	if cfg.ResultBackend == "postgres" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return postgres.NewDocumentRepository(db), postgres.NewResultStore(db), nil
	}

	db, err := badgerstore.Open(cfg.BadgerPath)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, db.Close)
	return badgerstore.NewDocumentRepository(db), badgerstore.NewResultStore(db), nil
}

func (a *App) openQueue(cfg config.Config, executor *resilience.Executor) (ports.MessageQueue, error) {
	if cfg.QueueBackend == "nats" {
		q, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		a.closers = append(a.closers, q.Close)
		return q, nil
	}

	q := gochannel.New(cfg.NATSSubject, int64(cfg.ProcessWorkers)*16)
	a.closers = append(a.closers, q.Close)
	a.QueueReady = q.Ready()
	return q, nil
}

func remoteBackend(cfg config.Config, embeddings ports.EmbeddingProvider, executor *resilience.Executor) ports.RemoteRetrieval {
	switch cfg.RemoteBackend {
	case "r2r":
		return r2r.New(cfg.R2RBaseURL, r2r.Options{Timeout: cfg.RemoteTimeout, Resilience: executor})
	case "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embeddings, qdrant.Options{
			Timeout:    cfg.RemoteTimeout,
			Resilience: executor,
		})
	default:
		return nil
	}
}

// Close releases stores and queues in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("bootstrap_close_failed", "error", err)
		}
	}
	a.closers = nil
}
