package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	dbmodels "coursewizard/db/models"
	"coursewizard/logger"
	"coursewizard/mention"
	"coursewizard/session"
	"coursewizard/wizard"
)

const maxBodyBytes = 1 << 20

// Store is the optional persistence behind the handlers. *db.Store
// satisfies it.
type Store interface {
	SaveAnswer(ctx context.Context, doc dbmodels.AnswerDocument) error
	GetAnswerHistory(ctx context.Context, sessionID string, limit, offset int) ([]dbmodels.AnswerDocument, int64, error)
	SaveContent(ctx context.Context, doc dbmodels.ContentDocument) (string, error)
	GetContent(ctx context.Context, id string) (*dbmodels.ContentDocument, error)
}

type Handler struct {
	Mentions *mention.Engine
	Resolver *wizard.Resolver
	Sessions *session.Registry
	Store    Store // nil when running in memory only
	Log      *logger.Logger
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/mention/change", h.MentionChange)
	mux.HandleFunc("/mention/commit", h.MentionCommit)
	mux.HandleFunc("/content", h.Content)
	mux.HandleFunc("/wizard/sessions", h.SessionsEndpoint)
	mux.HandleFunc("/wizard/answer", h.Answer)
	mux.HandleFunc("/wizard/history", h.History)
	mux.HandleFunc("/wizard/generate", h.Generate)
	mux.HandleFunc("/wizard/objection", h.Objection)
	mux.HandleFunc("/wizard/options", h.Options)
}

func (h *Handler) log() *logger.Logger {
	if h.Log == nil {
		return logger.Nop()
	}
	return h.Log
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
