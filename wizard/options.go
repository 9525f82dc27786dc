package wizard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"coursewizard/jsonutil"
	"coursewizard/models"
	"coursewizard/prompts"
)

const (
	DefaultOptionCount = 5
	MaxOptionCount     = 50
)

var (
	countLeadPattern  = regexp.MustCompile(`(?i)\b(?:exactly|top|give)\s+(\d+)`)
	countTrailPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(?:best|top|options)`)
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")
)

// ParseOptionCount reads the number of options a template asks for,
// clamped to [1, MaxOptionCount].
func ParseOptionCount(template string) int {
	m := countLeadPattern.FindStringSubmatch(template)
	if m == nil {
		m = countTrailPattern.FindStringSubmatch(template)
	}
	if m == nil {
		return DefaultOptionCount
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// only digits reach here, so the number is too large for an int
		return MaxOptionCount
	}
	switch {
	case n < 1:
		return 1
	case n > MaxOptionCount:
		return MaxOptionCount
	}
	return n
}

type optionList struct {
	Items []models.Option `json:"items"`
}

// ExtractOptions pulls the items array out of raw model output. It returns
// nil when no parseable items list is found.
func ExtractOptions(raw string) []models.Option {
	payload := ""
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		payload = m[1]
	} else {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end < start {
			return nil
		}
		payload = raw[start : end+1]
	}

	var list optionList
	if err := jsonutil.UnmarshalFlex([]byte(payload), &list); err != nil {
		return nil
	}
	if list.Items == nil {
		return nil
	}
	return list.Items
}

// NormalizeOptions returns exactly n options: the first n of items, padded
// with "Additional Option k" entries.
func NormalizeOptions(items []models.Option, n int) []models.Option {
	out := make([]models.Option, 0, n)
	for i := 0; i < n; i++ {
		if i < len(items) {
			out = append(out, items[i])
			continue
		}
		label := fmt.Sprintf("Additional Option %d", i+1)
		out = append(out, models.Option{Label: label, Value: label})
	}
	return out
}

func FallbackOptions(n int) []models.Option {
	out := make([]models.Option, n)
	for i := range out {
		label := fmt.Sprintf("Fallback Option %d", i+1)
		out[i] = models.Option{Label: label, Value: label}
	}
	return out
}

// GetStepOptions generates the option list for an option-list step. The
// result always holds exactly ParseOptionCount(req.Template) items.
func (r *Resolver) GetStepOptions(ctx context.Context, req Request) []models.Option {
	n := ParseOptionCount(req.Template)
	processed, _ := r.processTemplate(req, r.studentContext(ctx, req))

	text, err := r.generate(ctx, []models.Message{
		{Role: models.RoleSystem, Content: prompts.ConstructOptionsSystemPrompt(n)},
		{Role: models.RoleUser, Content: processed},
	})
	if err != nil {
		return FallbackOptions(n)
	}

	items := ExtractOptions(text)
	if items == nil {
		r.log.Warn("Unparseable option list, using fallback", "course_id", req.CourseID, "count", n)
		return FallbackOptions(n)
	}
	return NormalizeOptions(items, n)
}
