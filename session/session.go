package session

import (
	"sync"
	"time"

	"coursewizard/models"
)

// Session is one student's pass through a course wizard. Recorded answers
// and conversation turns are append only.
type Session struct {
	ID        string
	CourseID  string
	StudentID string
	CreatedAt time.Time

	mu      sync.RWMutex
	history []models.AnswerHistoryEntry
	turns   []models.Message
}

// Record appends an answer. Re-answering a step appends again; the newest
// answer wins when the context map is built.
func (s *Session) Record(entry models.AnswerHistoryEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return len(s.history) - 1
}

func (s *Session) History() []models.AnswerHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnswerHistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) ContextMap() models.ContextMap {
	return models.BuildContextMap(s.History())
}

// AppendTurns records user and assistant messages of an objection exchange.
func (s *Session) AppendTurns(turns ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
}

func (s *Session) Turns() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.turns))
	copy(out, s.turns)
	return out
}
