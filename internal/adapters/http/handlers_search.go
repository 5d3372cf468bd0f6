package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/notescan/internal/core/domain"
)

type searchRequest struct {
	Query string `json:"query" validate:"required,max=1000"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type chatRequest struct {
	Message    string `json:"message" validate:"required,max=4000"`
	DocumentID string `json:"document_id" validate:"omitempty,uuid4"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !rt.decodeAndValidate(w, r, &req) {
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = rt.cfg.SearchDefaultLimit
	}
	results := rt.svc.Search.Search(r.Context(), req.Query, limit)
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (rt *Router) suggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < 2 {
		writeBadRequest(w, "query parameter 'q' must be at least 2 characters")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": rt.svc.Search.Suggest(r.Context(), q, 5),
	})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !rt.decodeAndValidate(w, r, &req) {
		return
	}
	reply, err := rt.svc.Chat.Chat(r.Context(), req.Message, req.DocumentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (rt *Router) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeBadRequest(w, "invalid json")
		return false
	}
	if err := rt.validate.Struct(dst); err != nil {
		writeBadRequest(w, err.Error())
		return false
	}
	return true
}
