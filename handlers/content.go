package handlers

import (
	"errors"
	"net/http"
	"strings"

	"coursewizard/db"
	dbmodels "coursewizard/db/models"
	"coursewizard/mention"
)

type SaveContentRequest struct {
	AuthorID string         `json:"author_id"`
	Text     string         `json:"text"`
	Spans    []mention.Span `json:"spans"`
}

type ContentResponse struct {
	ID    string                `json:"id,omitempty"`
	Text  string                `json:"text"`
	Parts []mention.ContentPart `json:"parts"`
	Spans []mention.Span        `json:"spans,omitempty"`
}

// Content stores committed text on POST and loads it back on GET.
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.saveContent(w, r)
	case http.MethodGet:
		h.getContent(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) saveContent(w http.ResponseWriter, r *http.Request) {
	var req SaveContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	parts := mention.Serialize(req.Text, req.Spans)
	resp := ContentResponse{Text: mention.Join(parts), Parts: parts}
	if h.Store == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	id, err := h.Store.SaveContent(r.Context(), dbmodels.NewContentDocument(req.AuthorID, parts))
	if err != nil {
		h.log().Error("Failed to save content", "author_id", req.AuthorID, "error", err)
		http.Error(w, "Failed to save content", http.StatusInternalServerError)
		return
	}
	resp.ID = id
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "Content ID is required", http.StatusBadRequest)
		return
	}
	if h.Store == nil {
		http.Error(w, "Persistence is disabled", http.StatusServiceUnavailable)
		return
	}

	doc, err := h.Store.GetContent(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Content not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("Failed to load content", "id", id, "error", err)
		http.Error(w, "Failed to load content", http.StatusInternalServerError)
		return
	}

	text, spans := mention.Parse(doc.Parts)
	writeJSON(w, http.StatusOK, ContentResponse{ID: id, Text: text, Parts: doc.Parts, Spans: spans})
}
