package mention

import "sort"

// MentionData identifies the entity a mention points at.
type MentionData struct {
	ID      string `json:"id" bson:"id"`
	Name    string `json:"name" bson:"name"`
	Trigger string `json:"trigger" bson:"trigger"`
}

// ContentPart is one segment of a serialized buffer. A part without Data is plain text.
type ContentPart struct {
	Text string       `json:"text" bson:"text"`
	Data *MentionData `json:"data,omitempty" bson:"data,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Text: text}
}

func MentionPart(text string, data MentionData) ContentPart {
	return ContentPart{Text: text, Data: &data}
}

func (p ContentPart) IsMention() bool {
	return p.Data != nil
}

// Span is a committed mention covering runes [Start, End) of the buffer.
type Span struct {
	Start int         `json:"start"`
	End   int         `json:"end"`
	Data  MentionData `json:"data"`
}

func (s Span) contains(i int) bool {
	return i >= s.Start && i < s.End
}

// Serialize splits buffer into text and mention parts in buffer order.
// Spans that fall outside the buffer or overlap an earlier span are emitted as
// plain text, so concatenating the parts always yields buffer.
func Serialize(buffer string, spans []Span) []ContentPart {
	runes := []rune(buffer)
	parts := make([]ContentPart, 0, 2*len(spans)+1)

	pos := 0
	for _, sp := range sortedSpans(spans) {
		if sp.Start < pos || sp.Start >= sp.End || sp.End > len(runes) {
			continue
		}
		if sp.Start > pos {
			parts = append(parts, TextPart(string(runes[pos:sp.Start])))
		}
		parts = append(parts, MentionPart(string(runes[sp.Start:sp.End]), sp.Data))
		pos = sp.End
	}
	if pos < len(runes) {
		parts = append(parts, TextPart(string(runes[pos:])))
	}
	return parts
}

// Parse rebuilds the buffer and its mention spans from stored parts.
func Parse(parts []ContentPart) (string, []Span) {
	var (
		buf   []rune
		spans []Span
	)
	for _, p := range parts {
		runes := []rune(p.Text)
		if p.IsMention() && len(runes) > 0 {
			spans = append(spans, Span{Start: len(buf), End: len(buf) + len(runes), Data: *p.Data})
		}
		buf = append(buf, runes...)
	}
	return string(buf), spans
}

// Join concatenates the text of every part.
func Join(parts []ContentPart) string {
	n := 0
	for _, p := range parts {
		n += len(p.Text)
	}
	b := make([]byte, 0, n)
	for _, p := range parts {
		b = append(b, p.Text...)
	}
	return string(b)
}

func sortedSpans(spans []Span) []Span {
	out := make([]Span, len(spans))
	copy(out, spans)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
