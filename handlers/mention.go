package handlers

import (
	"net/http"

	"coursewizard/mention"
)

type MentionChangeRequest struct {
	State     mention.State     `json:"state"`
	Text      string            `json:"text"`
	Selection mention.Selection `json:"selection"`
}

type MentionResponse struct {
	State     mention.State         `json:"state"`
	Active    *mention.MentionState `json:"active,omitempty"`
	Parts     []mention.ContentPart `json:"parts"`
	Committed bool                  `json:"committed,omitempty"`
}

// MentionChange applies one edit to the client's editor state.
func (h *Handler) MentionChange(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req MentionChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	next := h.Mentions.OnTextChange(req.State, req.Text, req.Selection)
	writeJSON(w, http.StatusOK, h.mentionResponse(next, false))
}

type MentionCommitRequest struct {
	State      mention.State      `json:"state"`
	Trigger    string             `json:"trigger"`
	Suggestion mention.Suggestion `json:"suggestion"`
}

// MentionCommit replaces the active search with the picked suggestion.
func (h *Handler) MentionCommit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req MentionCommitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	next, _, ok := h.Mentions.CommitSelection(req.State, req.Trigger, req.Suggestion)
	writeJSON(w, http.StatusOK, h.mentionResponse(next, ok))
}

func (h *Handler) mentionResponse(st mention.State, committed bool) MentionResponse {
	resp := MentionResponse{State: st, Parts: st.Parts(), Committed: committed}
	if active, ok := h.Mentions.Active(st); ok {
		resp.Active = &active
	}
	return resp
}
