package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/kirillkom/notescan/internal/core/domain"
	"github.com/kirillkom/notescan/internal/core/usecase"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the configured upload limit.
const multipartOverhead = 1 << 20

func (rt *Router) maxRequestBytes(files int) int64 {
	limit := int64(rt.cfg.MaxUploadBytes)
	if limit <= 0 {
		limit = 10 << 20
	}
	return limit*int64(files) + multipartOverhead
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxRequestBytes(1))

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeBadRequest(w, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.svc.Ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.ObserveUpload(doc.SizeBytes)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "File uploaded successfully",
		"document_id": doc.ID,
		"filename":    doc.Filename,
	})
}

const maxBatchFiles = 20

func (rt *Router) uploadBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxRequestBytes(maxBatchFiles))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeBadRequest(w, "multipart form with 'files' is required")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeBadRequest(w, "multipart field 'files' is required")
		return
	}
	if len(headers) > maxBatchFiles {
		writeBadRequest(w, fmt.Sprintf("at most %d files per batch", maxBatchFiles))
		return
	}

	files := make([]usecase.UploadFile, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			slog.Warn("batch_part_open_failed", "filename", header.Filename, "error", err)
			files = append(files, usecase.UploadFile{Filename: header.Filename, Body: failingReader{err: err}})
			continue
		}
		opened = append(opened, f)
		files = append(files, usecase.UploadFile{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Body:     f,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": rt.svc.Ingest.UploadBatch(r.Context(), files)})
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.svc.Trigger.RequestProcessing(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":     "Processing started",
		"document_id": id,
		"status":      domain.StatusProcessing,
	})
}

func (rt *Router) processingStatus(w http.ResponseWriter, r *http.Request) {
	result, err := rt.svc.Status.GetProcessingResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, err := domain.ParseArtifactType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, filename, err := rt.svc.Artifacts.Open(r.Context(), r.PathValue("id"), artifact)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", artifact.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("artifact_stream_failed", "document_id", r.PathValue("id"), "error", err)
	}
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.svc.Catalog.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.DocumentView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.svc.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Document deleted successfully",
		"document_id": id,
	})
}
