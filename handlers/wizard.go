package handlers

import (
	"net/http"
	"strings"

	"coursewizard/models"
	"coursewizard/session"
	"coursewizard/wizard"
)

// WizardRequest is shared by the generate, objection and options endpoints.
// With a session_id, the session's answers and turns are used before the
// ones sent in the body.
type WizardRequest struct {
	SessionID     string                      `json:"session_id,omitempty"`
	CourseID      string                      `json:"course_id"`
	StudentID     string                      `json:"student_id"`
	Template      string                      `json:"template"`
	AnswerHistory []models.AnswerHistoryEntry `json:"answer_history,omitempty"`
	Messages      []models.Message            `json:"messages,omitempty"`
	FirstResponse string                      `json:"first_response,omitempty"`
	Objection     string                      `json:"objection,omitempty"`
}

type GenerateResponse struct {
	GeneratedText string           `json:"generated_text"`
	Fallback      bool             `json:"fallback"`
	Diagnostics   []string         `json:"diagnostics,omitempty"`
	Messages      []models.Message `json:"messages"`
}

type OptionsResponse struct {
	Count   int             `json:"count"`
	Options []models.Option `json:"options"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, wizard.ModeGenerate)
}

// Objection regenerates a response against the student's objection and
// records the exchange on the session.
func (h *Handler) Objection(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, wizard.ModeObjection)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, mode wizard.Mode) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	req, s, ok := h.wizardRequest(w, r, mode)
	if !ok {
		return
	}
	if mode == wizard.ModeObjection && strings.TrimSpace(req.Objection) == "" {
		http.Error(w, "Objection is required", http.StatusBadRequest)
		return
	}

	res := h.Resolver.Resolve(r.Context(), req)
	if s != nil && mode == wizard.ModeObjection && !res.Failed {
		s.AppendTurns(
			models.Message{Role: models.RoleUser, Content: req.Objection},
			models.Message{Role: models.RoleAssistant, Content: res.GeneratedText},
		)
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		GeneratedText: res.GeneratedText,
		Fallback:      res.Failed,
		Diagnostics:   res.Diagnostics,
		Messages:      res.Messages,
	})
}

// Options generates the choices for an option-list step.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	req, _, ok := h.wizardRequest(w, r, wizard.ModeGenerate)
	if !ok {
		return
	}

	options := h.Resolver.GetStepOptions(r.Context(), req)
	writeJSON(w, http.StatusOK, OptionsResponse{Count: len(options), Options: options})
}

// wizardRequest decodes the body and folds in the session, if any. It writes
// the error response itself and returns ok false on failure.
func (h *Handler) wizardRequest(w http.ResponseWriter, r *http.Request, mode wizard.Mode) (wizard.Request, *session.Session, bool) {
	var body WizardRequest
	if !decodeJSON(w, r, &body) {
		return wizard.Request{}, nil, false
	}
	if strings.TrimSpace(body.Template) == "" && mode != wizard.ModeObjection {
		http.Error(w, "Template is required", http.StatusBadRequest)
		return wizard.Request{}, nil, false
	}

	req := wizard.Request{
		Template:      body.Template,
		Context:       models.BuildContextMap(body.AnswerHistory),
		Mode:          mode,
		PriorMessages: body.Messages,
		CourseID:      body.CourseID,
		StudentID:     body.StudentID,
		FirstResponse: body.FirstResponse,
		Objection:     body.Objection,
	}
	if body.SessionID == "" {
		return req, nil, true
	}

	s, ok := h.Sessions.Get(body.SessionID)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return wizard.Request{}, nil, false
	}
	req.Context = s.ContextMap().Merge(req.Context)
	req.PriorMessages = append(s.Turns(), body.Messages...)
	if req.CourseID == "" {
		req.CourseID = s.CourseID
	}
	if req.StudentID == "" {
		req.StudentID = s.StudentID
	}
	return req, s, true
}
