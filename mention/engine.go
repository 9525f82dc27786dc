package mention

import (
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const escapeRune = '\\'

// Selection is a cursor or selection range in rune offsets.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Selection) Collapsed() bool {
	return s.Start == s.End
}

func (s Selection) validIn(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}

// MentionState tracks the search of one trigger. When IsActive, runes
// [Start, End) of the text are the trigger followed by Keyword.
type MentionState struct {
	Trigger  string `json:"trigger"`
	Keyword  string `json:"keyword"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	IsActive bool   `json:"is_active"`
}

// Suggestion is a candidate picked from the list the host screen shows.
type Suggestion struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// State is everything the input controller keeps between keystrokes.
type State struct {
	Text      string         `json:"text"`
	Selection Selection      `json:"selection"`
	Mentions  []MentionState `json:"mentions"`
	Spans     []Span         `json:"spans,omitempty"`
}

// Parts serializes the state's text and committed spans.
func (s State) Parts() []ContentPart {
	return Serialize(s.Text, s.Spans)
}

// Engine applies text edits and commits to a State. It holds only the
// compiled trigger configuration and is safe for concurrent use.
type Engine struct {
	triggers []compiledTrigger
	byChar   map[rune]int
	dmp      *diffmatchpatch.DiffMatchPatch
}

// New builds an engine for the given triggers, or for DefaultTriggers when none are given.
func New(triggers ...Trigger) (*Engine, error) {
	if len(triggers) == 0 {
		triggers = DefaultTriggers()
	}
	e := &Engine{
		triggers: make([]compiledTrigger, 0, len(triggers)),
		byChar:   make(map[rune]int, len(triggers)),
		dmp:      diffmatchpatch.New(),
	}
	for _, t := range triggers {
		ct, err := compileTrigger(t)
		if err != nil {
			return nil, err
		}
		if _, dup := e.byChar[ct.char]; dup {
			return nil, fmt.Errorf("mention: duplicate trigger %q", t.Char)
		}
		e.byChar[ct.char] = len(e.triggers)
		e.triggers = append(e.triggers, ct)
	}
	return e, nil
}

// Triggers returns the configured triggers in order.
func (e *Engine) Triggers() []Trigger {
	out := make([]Trigger, len(e.triggers))
	for i, t := range e.triggers {
		out[i] = t.Trigger
	}
	return out
}

// NewState returns a state for text with the cursor at the end and no search active.
func (e *Engine) NewState(text string) State {
	n := utf8.RuneCountInString(text)
	return State{
		Text:      text,
		Selection: Selection{Start: n, End: n},
		Mentions:  e.inactive(),
	}
}

// Active returns the active search, if any.
func (e *Engine) Active(st State) (MentionState, bool) {
	for _, m := range st.Mentions {
		if m.IsActive {
			return m, true
		}
	}
	return MentionState{}, false
}

// OnTextChange computes the state after the text changed from prev.Text to
// newText with the cursor now at sel. Committed spans are moved with the edit
// or dropped when the edit touched them. The text itself is never rewritten.
// An out of range selection leaves prev unchanged.
func (e *Engine) OnTextChange(prev State, newText string, sel Selection) State {
	runes := []rune(newText)
	if !sel.validIn(len(runes)) {
		return prev
	}

	region := e.diffRegion(prev.Text, newText, sel)
	spans := region.rebase(prev.Spans, len(runes))

	return State{
		Text:      newText,
		Selection: sel,
		Mentions:  e.scan(runes, sel, spans),
		Spans:     spans,
	}
}

// CommitSelection replaces the active search of trigger with the trigger
// followed by the suggestion's name and records it as a mention span. The
// cursor lands right after the inserted name. The span end is a boundary the
// scanner never crosses, so typing on does not reopen the same search.
// When trigger is not active the state is returned unchanged with ok false.
func (e *Engine) CommitSelection(st State, trigger string, s Suggestion) (next State, parts []ContentPart, ok bool) {
	ms, found := e.activeFor(st, trigger)
	runes := []rune(st.Text)
	if !found || s.Name == "" || ms.Start < 0 || ms.Start >= ms.End || ms.End > len(runes) ||
		string(runes[ms.Start]) != trigger {
		return st, st.Parts(), false
	}

	display := []rune(trigger + s.Name)
	text := make([]rune, 0, len(runes)-(ms.End-ms.Start)+len(display))
	text = append(text, runes[:ms.Start]...)
	text = append(text, display...)
	text = append(text, runes[ms.End:]...)

	replaced := editRegion{start: ms.Start, oldEnd: ms.End, newEnd: ms.Start + len(display)}
	spans := replaced.rebase(st.Spans, len(text))
	spans = append(spans, Span{
		Start: replaced.start,
		End:   replaced.newEnd,
		Data:  MentionData{ID: s.ID, Name: s.Name, Trigger: trigger},
	})
	spans = sortedSpans(spans)

	cursor := replaced.newEnd
	next = State{
		Text:      string(text),
		Selection: Selection{Start: cursor, End: cursor},
		Mentions:  e.inactive(),
		Spans:     spans,
	}
	return next, next.Parts(), true
}

func (e *Engine) activeFor(st State, trigger string) (MentionState, bool) {
	for _, m := range st.Mentions {
		if m.IsActive && m.Trigger == trigger {
			return m, true
		}
	}
	return MentionState{}, false
}

func (e *Engine) inactive() []MentionState {
	out := make([]MentionState, len(e.triggers))
	for i, t := range e.triggers {
		out[i] = MentionState{Trigger: t.Char}
	}
	return out
}

// scan runs every trigger's backward search from the cursor and keeps only
// the match that starts last.
func (e *Engine) scan(runes []rune, sel Selection, spans []Span) []MentionState {
	out := e.inactive()
	if !sel.Collapsed() {
		return out
	}

	best, bestStart := -1, -1
	for i, t := range e.triggers {
		start, ok := e.scanTrigger(t, runes, sel.End, spans)
		if ok && start > bestStart {
			best, bestStart = i, start
		}
	}
	if best >= 0 {
		out[best] = MentionState{
			Trigger:  e.triggers[best].Char,
			Keyword:  string(runes[bestStart+1 : sel.End]),
			Start:    bestStart,
			End:      sel.End,
			IsActive: true,
		}
	}
	return out
}

// scanTrigger walks back from cursor to the nearest unescaped trigger rune.
func (e *Engine) scanTrigger(t compiledTrigger, runes []rune, cursor int, spans []Span) (int, bool) {
	for i := cursor - 1; i >= 0; i-- {
		if inSpan(spans, i) {
			return 0, false
		}
		r := runes[i]
		if _, isTrigger := e.byChar[r]; isTrigger {
			if r != t.char || escaped(runes, i) {
				return 0, false
			}
			n := cursor - i - 1
			if n < t.MinLength || t.tooLong(n) {
				return 0, false
			}
			return i, true
		}
		if r == '\n' || r == '\r' || !t.allows(r) || t.tooLong(cursor-i) {
			return 0, false
		}
	}
	return 0, false
}

func escaped(runes []rune, i int) bool {
	return i > 0 && runes[i-1] == escapeRune
}

func inSpan(spans []Span, i int) bool {
	for _, sp := range spans {
		if sp.contains(i) {
			return true
		}
	}
	return false
}

// editRegion is the replaced range: runes [start, oldEnd) of the old text
// became runes [start, newEnd) of the new text.
type editRegion struct {
	start, oldEnd, newEnd int
}

// diffRegion derives the single changed region from the common prefix and
// suffix. The suffix is capped at the cursor so an ambiguous insertion
// ("a" typed before "a") is attributed to where the user typed.
func (e *Engine) diffRegion(prev, next string, sel Selection) editRegion {
	oldLen, newLen := utf8.RuneCountInString(prev), utf8.RuneCountInString(next)

	suffix := e.dmp.DiffCommonSuffix(prev, next)
	if limit := newLen - sel.End; suffix > limit {
		suffix = limit
	}
	prefix := e.dmp.DiffCommonPrefix(prev, next)
	if limit := min(oldLen, newLen) - suffix; prefix > limit {
		prefix = limit
	}
	return editRegion{start: prefix, oldEnd: oldLen - suffix, newEnd: newLen - suffix}
}

// rebase keeps spans before the region, shifts spans after it and drops the
// ones the edit touched. An empty region (a cursor or selection move) touches
// nothing. The result is a fresh slice.
func (r editRegion) rebase(spans []Span, newLen int) []Span {
	if len(spans) == 0 {
		return nil
	}
	empty := r.oldEnd == r.start && r.newEnd == r.start
	delta := r.newEnd - r.oldEnd
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		switch {
		case empty, sp.End <= r.start:
		case sp.Start >= r.oldEnd:
			sp.Start += delta
			sp.End += delta
		default:
			continue
		}
		if sp.Start < 0 || sp.Start >= sp.End || sp.End > newLen {
			continue
		}
		out = append(out, sp)
	}
	return out
}
