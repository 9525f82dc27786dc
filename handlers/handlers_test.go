package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursewizard/db"
	dbmodels "coursewizard/db/models"
	"coursewizard/logger"
	"coursewizard/mention"
	"coursewizard/models"
	"coursewizard/prompts"
	"coursewizard/session"
	"coursewizard/wizard"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(ctx context.Context, messages []models.Message) (string, error) {
	return g.text, g.err
}

type memoryStore struct {
	mu       sync.Mutex
	answers  []dbmodels.AnswerDocument
	contents map[string]dbmodels.ContentDocument
	failSave bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{contents: map[string]dbmodels.ContentDocument{}}
}

func (m *memoryStore) SaveAnswer(ctx context.Context, doc dbmodels.AnswerDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("write failed")
	}
	m.answers = append(m.answers, doc)
	return nil
}

func (m *memoryStore) GetAnswerHistory(ctx context.Context, sessionID string, limit, offset int) ([]dbmodels.AnswerDocument, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []dbmodels.AnswerDocument
	for _, d := range m.answers {
		if d.SessionID == sessionID {
			docs = append(docs, d)
		}
	}
	total := int64(len(docs))
	if offset >= len(docs) {
		return nil, total, nil
	}
	return docs[offset:min(offset+limit, len(docs))], total, nil
}

func (m *memoryStore) SaveContent(ctx context.Context, doc dbmodels.ContentDocument) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "65f000000000000000000001"
	m.contents[id] = doc
	return id, nil
}

func (m *memoryStore) GetContent(ctx context.Context, id string) (*dbmodels.ContentDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.contents[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &doc, nil
}

func newTestHandler(t *testing.T, gen stubGenerator, store Store) (*Handler, http.Handler) {
	t.Helper()
	engine, err := mention.New()
	require.NoError(t, err)

	h := &Handler{
		Mentions: engine,
		Resolver: wizard.NewResolver(wizard.Config{Generator: gen}),
		Sessions: session.NewRegistry(),
		Store:    store,
		Log:      logger.Nop(),
	}
	mux := http.NewServeMux()
	h.Routes(mux)
	return h, mux
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestStatusCodes(t *testing.T) {
	_, mux := newTestHandler(t, stubGenerator{text: "ok"}, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"change wrong method", http.MethodGet, "/mention/change", nil, http.StatusMethodNotAllowed},
		{"change malformed", http.MethodPost, "/mention/change", "{", http.StatusBadRequest},
		{"commit malformed", http.MethodPost, "/mention/commit", "[]", http.StatusBadRequest},
		{"content wrong method", http.MethodPut, "/content", nil, http.StatusMethodNotAllowed},
		{"content missing id", http.MethodGet, "/content", nil, http.StatusBadRequest},
		{"content without store", http.MethodGet, "/content?id=abc", nil, http.StatusServiceUnavailable},
		{"sessions wrong method", http.MethodGet, "/wizard/sessions", nil, http.StatusMethodNotAllowed},
		{"delete unknown session", http.MethodDelete, "/wizard/sessions?session_id=nope", nil, http.StatusNotFound},
		{"answer unknown session", http.MethodPost, "/wizard/answer", map[string]any{"session_id": "nope", "title": "Niche"}, http.StatusNotFound},
		{"answer without title", http.MethodPost, "/wizard/answer", map[string]any{"session_id": "nope"}, http.StatusBadRequest},
		{"history unknown session", http.MethodGet, "/wizard/history?session_id=nope", nil, http.StatusNotFound},
		{"history wrong method", http.MethodPost, "/wizard/history", nil, http.StatusMethodNotAllowed},
		{"generate malformed", http.MethodPost, "/wizard/generate", "not json", http.StatusBadRequest},
		{"generate without template", http.MethodPost, "/wizard/generate", map[string]any{}, http.StatusBadRequest},
		{"generate unknown session", http.MethodPost, "/wizard/generate", map[string]any{"template": "x", "session_id": "nope"}, http.StatusNotFound},
		{"objection without objection", http.MethodPost, "/wizard/objection", map[string]any{"template": "x"}, http.StatusBadRequest},
		{"options wrong method", http.MethodGet, "/wizard/options", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, mux, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestMentionFlow(t *testing.T) {
	h, mux := newTestHandler(t, stubGenerator{}, nil)
	st := h.Mentions.NewState("")

	rec := do(t, mux, http.MethodPost, "/mention/change", MentionChangeRequest{
		State:     st,
		Text:      "hi @jo",
		Selection: mention.Selection{Start: 6, End: 6},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	changed := decode[MentionResponse](t, rec)
	require.NotNil(t, changed.Active)
	assert.Equal(t, "@", changed.Active.Trigger)
	assert.Equal(t, "jo", changed.Active.Keyword)

	rec = do(t, mux, http.MethodPost, "/mention/commit", MentionCommitRequest{
		State:      changed.State,
		Trigger:    "@",
		Suggestion: mention.Suggestion{ID: "u1", Name: "John Smith"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	committed := decode[MentionResponse](t, rec)
	assert.True(t, committed.Committed)
	assert.Nil(t, committed.Active)
	assert.Equal(t, "hi @John Smith", committed.State.Text)
	require.Len(t, committed.Parts, 2)
	assert.Equal(t, "@John Smith", committed.Parts[1].Text)
	assert.Equal(t, "u1", committed.Parts[1].Data.ID)

	rec = do(t, mux, http.MethodPost, "/mention/commit", MentionCommitRequest{
		State:      committed.State,
		Trigger:    "@",
		Suggestion: mention.Suggestion{ID: "u2", Name: "Jane"},
	})
	again := decode[MentionResponse](t, rec)
	assert.False(t, again.Committed)
	assert.Equal(t, committed.State.Text, again.State.Text)
}

func TestContentRoundTrip(t *testing.T) {
	store := newMemoryStore()
	_, mux := newTestHandler(t, stubGenerator{}, store)

	rec := do(t, mux, http.MethodPost, "/content", SaveContentRequest{
		AuthorID: "author-1",
		Text:     "thanks @Ann!",
		Spans:    []mention.Span{{Start: 7, End: 11, Data: mention.MentionData{ID: "u1", Name: "Ann", Trigger: "@"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[ContentResponse](t, rec)
	require.NotEmpty(t, saved.ID)
	assert.Len(t, saved.Parts, 3)
	assert.Equal(t, []string{"u1"}, store.contents[saved.ID].Mentions)

	rec = do(t, mux, http.MethodGet, "/content?id="+saved.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	loaded := decode[ContentResponse](t, rec)
	assert.Equal(t, "thanks @Ann!", loaded.Text)
	require.Len(t, loaded.Spans, 1)
	assert.Equal(t, 7, loaded.Spans[0].Start)

	rec = do(t, mux, http.MethodGet, "/content?id=65f0000000000000000000ff", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentWithoutStoreStillSerializes(t *testing.T) {
	_, mux := newTestHandler(t, stubGenerator{}, nil)
	rec := do(t, mux, http.MethodPost, "/content", SaveContentRequest{Text: "plain"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ContentResponse](t, rec)
	assert.Empty(t, resp.ID)
	assert.Equal(t, []mention.ContentPart{mention.TextPart("plain")}, resp.Parts)
}

func TestWizardSessionFlow(t *testing.T) {
	store := newMemoryStore()
	_, mux := newTestHandler(t, stubGenerator{text: "Revised hook"}, store)

	rec := do(t, mux, http.MethodPost, "/wizard/sessions", CreateSessionRequest{CourseID: "c1", StudentID: "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sess := decode[SessionResponse](t, rec)
	require.NotEmpty(t, sess.SessionID)

	for _, a := range []models.AnswerHistoryEntry{
		{StepID: 1, Title: "Niche", SelectedOption: "fitness"},
		{StepID: 2, Title: "Experience", SelectedOption: "5 years"},
		{StepID: 1, Title: "Niche", SelectedOption: "coaching"},
	} {
		rec = do(t, mux, http.MethodPost, "/wizard/answer", AnswerRequest{SessionID: sess.SessionID, AnswerHistoryEntry: a})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	answer := decode[AnswerResponse](t, rec)
	assert.Equal(t, 2, answer.Index)
	assert.Equal(t, "coaching", answer.Context["Niche"])
	assert.Len(t, store.answers, 3)

	rec = do(t, mux, http.MethodGet, "/wizard/history?session_id="+sess.SessionID+"&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[HistoryResponse](t, rec)
	assert.Len(t, history.Entries, 2)
	assert.Equal(t, int64(3), history.Total)
	assert.True(t, history.HasMore)

	rec = do(t, mux, http.MethodPost, "/wizard/generate", WizardRequest{
		SessionID: sess.SessionID,
		Template:  "Write for {Niche} in {Experience}",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	gen := decode[GenerateResponse](t, rec)
	assert.False(t, gen.Fallback)
	assert.Equal(t, "Write for coaching in 5 years", gen.Messages[1].Content)

	rec = do(t, mux, http.MethodPost, "/wizard/objection", WizardRequest{
		SessionID:     sess.SessionID,
		Template:      "Write a hook for {Niche}",
		FirstResponse: "Hook v1",
		Objection:     "Too long",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	objection := decode[GenerateResponse](t, rec)
	assert.Equal(t, "Revised hook", objection.GeneratedText)
	assert.Contains(t, objection.Messages[0].Content, "Write a hook for coaching")

	rec = do(t, mux, http.MethodPost, "/wizard/objection", WizardRequest{
		SessionID: sess.SessionID,
		Objection: "Still too long",
	})
	second := decode[GenerateResponse](t, rec)
	assert.Contains(t, second.Messages[0].Content, "User: Too long")
	assert.Contains(t, second.Messages[0].Content, "Assistant: Revised hook")

	rec = do(t, mux, http.MethodDelete, "/wizard/sessions?session_id="+sess.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// ended sessions are read back from the store
	rec = do(t, mux, http.MethodGet, "/wizard/history?session_id="+sess.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[HistoryResponse](t, rec)
	assert.Len(t, stored.Entries, 3)
	assert.False(t, stored.HasMore)
}

func TestHistoryOffsetPastEnd(t *testing.T) {
	store := newMemoryStore()
	h, mux := newTestHandler(t, stubGenerator{}, store)
	s := h.Sessions.Create("c1", "s1")
	for i := 1; i <= 3; i++ {
		rec := do(t, mux, http.MethodPost, "/wizard/answer", AnswerRequest{
			SessionID:          s.ID,
			AnswerHistoryEntry: models.AnswerHistoryEntry{StepID: i, Title: "Step", SelectedOption: "x"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	target := "/wizard/history?session_id=" + s.ID + "&offset=9223372036854775807"

	rec := do(t, mux, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	live := decode[HistoryResponse](t, rec)
	assert.Empty(t, live.Entries)
	assert.Equal(t, int64(3), live.Total)
	assert.False(t, live.HasMore)

	require.True(t, h.Sessions.Delete(s.ID))
	rec = do(t, mux, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[HistoryResponse](t, rec)
	assert.Empty(t, stored.Entries)
	assert.False(t, stored.HasMore)
}

func TestAnswerPersistFailureIsSoft(t *testing.T) {
	store := newMemoryStore()
	store.failSave = true
	h, mux := newTestHandler(t, stubGenerator{}, store)
	s := h.Sessions.Create("c1", "s1")

	rec := do(t, mux, http.MethodPost, "/wizard/answer", AnswerRequest{
		SessionID:          s.ID,
		AnswerHistoryEntry: models.AnswerHistoryEntry{StepID: 1, Title: "Niche", SelectedOption: "coaching"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.History(), 1)
}

func TestGenerateFailureReturnsFallback(t *testing.T) {
	_, mux := newTestHandler(t, stubGenerator{err: errors.New("HTTP 500")}, nil)

	rec := do(t, mux, http.MethodPost, "/wizard/generate", WizardRequest{Template: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[GenerateResponse](t, rec)
	assert.True(t, resp.Fallback)
	assert.Equal(t, prompts.FallbackText, resp.GeneratedText)
}

func TestObjectionFailureDoesNotRecordTurns(t *testing.T) {
	h, mux := newTestHandler(t, stubGenerator{err: errors.New("down")}, nil)
	s := h.Sessions.Create("c1", "s1")

	rec := do(t, mux, http.MethodPost, "/wizard/objection", WizardRequest{SessionID: s.ID, Objection: "nope"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Turns())
}

func TestOptions(t *testing.T) {
	out := "```json\n{\"items\":[{\"label\":\"A\",\"value\":\"a\"},{\"label\":\"B\",\"value\":\"b\"},{\"label\":\"C\",\"value\":\"c\"}]}\n```"
	_, mux := newTestHandler(t, stubGenerator{text: out}, nil)

	rec := do(t, mux, http.MethodPost, "/wizard/options", WizardRequest{Template: "give 12 options"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[OptionsResponse](t, rec)
	assert.Equal(t, 12, resp.Count)
	require.Len(t, resp.Options, 12)
	assert.Equal(t, "A", resp.Options[0].Label)
	assert.True(t, strings.HasPrefix(resp.Options[11].Label, "Additional Option"))

	_, mux = newTestHandler(t, stubGenerator{text: "garbage"}, nil)
	rec = do(t, mux, http.MethodPost, "/wizard/options", WizardRequest{Template: "exactly 500 options"})
	resp = decode[OptionsResponse](t, rec)
	assert.Len(t, resp.Options, 50)
	assert.Equal(t, "Fallback Option 1", resp.Options[0].Label)
}
