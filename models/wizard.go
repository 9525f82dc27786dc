package models

import "sort"

// AnswerHistoryEntry is one answered wizard step. Entries are appended as the
// wizard progresses and never modified.
type AnswerHistoryEntry struct {
	StepID         int    `json:"step_id" bson:"step_id"`
	Title          string `json:"title" bson:"title"`
	SelectedOption string `json:"selected_option" bson:"selected_option"`
}

// ContextMap maps a question title to its answer. Titles double as placeholder names.
type ContextMap map[string]string

// BuildContextMap derives a fresh ContextMap from history. When two entries
// share a title the later one wins.
func BuildContextMap(history []AnswerHistoryEntry) ContextMap {
	ctx := make(ContextMap, len(history))
	for _, entry := range history {
		ctx[entry.Title] = entry.SelectedOption
	}
	return ctx
}

// Merge returns a new map holding c overridden by other.
func (c ContextMap) Merge(other ContextMap) ContextMap {
	out := make(ContextMap, len(c)+len(other))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the questions in sorted order.
func (c ContextMap) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. Slices of messages are ordered earliest first.
type Message struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Option is one generated choice for an option-list wizard step.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
