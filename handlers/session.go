package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	dbmodels "coursewizard/db/models"
	"coursewizard/models"
)

type CreateSessionRequest struct {
	CourseID  string `json:"course_id"`
	StudentID string `json:"student_id"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CourseID  string    `json:"course_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionsEndpoint creates a session on POST and ends one on DELETE.
func (h *Handler) SessionsEndpoint(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req CreateSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		s := h.Sessions.Create(strings.TrimSpace(req.CourseID), strings.TrimSpace(req.StudentID))
		h.log().Info("Wizard session created", "session_id", s.ID, "course_id", s.CourseID)
		writeJSON(w, http.StatusCreated, SessionResponse{
			SessionID: s.ID,
			CourseID:  s.CourseID,
			StudentID: s.StudentID,
			CreatedAt: s.CreatedAt,
		})
	case http.MethodDelete:
		id := r.URL.Query().Get("session_id")
		if !h.Sessions.Delete(id) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type AnswerRequest struct {
	SessionID string `json:"session_id"`
	models.AnswerHistoryEntry
}

type AnswerResponse struct {
	SessionID string            `json:"session_id"`
	Index     int               `json:"index"`
	Context   models.ContextMap `json:"context"`
}

// Answer records the option a student picked for a step.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	s, ok := h.Sessions.Get(req.SessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	index := s.Record(req.AnswerHistoryEntry)
	if h.Store != nil {
		doc := dbmodels.NewAnswerDocument(s.ID, s.CourseID, s.StudentID, index, req.AnswerHistoryEntry)
		if err := h.Store.SaveAnswer(r.Context(), doc); err != nil {
			// the in-memory session still holds the answer
			h.log().Warn("Failed to persist answer", "session_id", s.ID, "index", index, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, AnswerResponse{SessionID: s.ID, Index: index, Context: s.ContextMap()})
}

type HistoryResponse struct {
	SessionID string                      `json:"session_id"`
	Entries   []models.AnswerHistoryEntry `json:"entries"`
	Total     int64                       `json:"total"`
	HasMore   bool                        `json:"has_more"`
}

// History lists a session's answers. Ended sessions are read back from the
// store when one is configured.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	if s, ok := h.Sessions.Get(sessionID); ok {
		all := s.History()
		start := min(offset, len(all))
		page := all[start:min(start+limit, len(all))]
		writeJSON(w, http.StatusOK, HistoryResponse{
			SessionID: sessionID,
			Entries:   page,
			Total:     int64(len(all)),
			HasMore:   len(all)-start > limit,
		})
		return
	}

	if h.Store == nil || sessionID == "" {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	docs, total, err := h.Store.GetAnswerHistory(r.Context(), sessionID, limit, offset)
	if err != nil {
		h.log().Error("Failed to fetch answer history", "session_id", sessionID, "error", err)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}
	if total == 0 {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	entries := make([]models.AnswerHistoryEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.Entry())
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Entries:   entries,
		Total:     total,
		HasMore:   total-int64(offset) > int64(limit),
	})
}
