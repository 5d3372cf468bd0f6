package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/notescan/internal/config"
	"github.com/kirillkom/notescan/internal/core/ports"
	"github.com/kirillkom/notescan/internal/core/usecase"
)

// DocumentIngestor accepts single and batch uploads.
type DocumentIngestor interface {
	ports.DocumentIngestor
	UploadBatch(ctx context.Context, files []usecase.UploadFile) []usecase.UploadOutcome
}

// Services are the use cases behind the HTTP surface. Optional handlers
// (Metrics, MCP, Files) are mounted only when set.
type Services struct {
	Ingest    DocumentIngestor
	Trigger   ports.ProcessTrigger
	Status    ports.StatusReader
	Catalog   ports.DocumentCatalog
	Artifacts ports.ArtifactReader
	Search    ports.Searcher
	Chat      ports.ChatService

	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	MCP            http.Handler
	Files          http.Handler
}

// HTTPMetrics instruments requests and accepted uploads.
type HTTPMetrics interface {
	Middleware(next http.Handler) http.Handler
	ObserveUpload(sizeBytes int64)
}

type Router struct {
	cfg      config.Config
	svc      Services
	validate *validator.Validate
}

func NewRouter(cfg config.Config, svc Services) *Router {
	return &Router{
		cfg:      cfg,
		svc:      svc,
		validate: validator.New(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.svc.MetricsHandler != nil {
		mux.Handle("GET /metrics", rt.svc.MetricsHandler)
	}

	mux.HandleFunc("POST /v1/upload", rt.uploadDocument)
	mux.HandleFunc("POST /v1/upload/batch", rt.uploadBatch)

	mux.HandleFunc("POST /v1/process/{id}", rt.processDocument)
	mux.HandleFunc("GET /v1/process/{id}/status", rt.processingStatus)
	mux.HandleFunc("GET /v1/process/{id}/download/{type}", rt.downloadArtifact)

	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)

	mux.HandleFunc("POST /v1/search", rt.search)
	mux.HandleFunc("GET /v1/search/suggestions", rt.suggestions)
	mux.HandleFunc("POST /v1/chat", rt.chat)

	if rt.svc.MCP != nil {
		mux.Handle("/mcp", rt.svc.MCP)
		mux.Handle("/mcp/", rt.svc.MCP)
	}
	if rt.svc.Files != nil {
		mux.Handle("GET /files/", http.StripPrefix("/files/", rt.svc.Files))
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.svc.Metrics != nil {
		handler = rt.svc.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]string{"status": "ok"}
	if rt.svc.Search != nil {
		resp["remote_retrieval"] = string(rt.svc.Search.RemoteHealth())
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}
