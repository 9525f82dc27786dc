package mention

import (
	"fmt"
	"regexp"
	"unicode"
)

const (
	// DefaultPattern matches letters, digits and underscore.
	DefaultPattern = `[\p{L}\p{N}_]`
	// DefaultMaxLength bounds a keyword when Trigger.MaxLength is zero.
	DefaultMaxLength = 50
)

// Trigger configures one mention search, e.g. "@" for users or "#" for tags.
type Trigger struct {
	Char        string `json:"char"`
	Pattern     string `json:"pattern,omitempty"`      // character class each keyword rune must match
	AllowSpaces bool   `json:"allow_spaces,omitempty"` // a plain space may appear inside the keyword
	MinLength   int    `json:"min_length,omitempty"`   // keywords shorter than this do not activate the search
	MaxLength   int    `json:"max_length,omitempty"`   // 0 means DefaultMaxLength, negative means unlimited
}

// DefaultTriggers returns the user ("@") and hashtag ("#") triggers.
func DefaultTriggers() []Trigger {
	return []Trigger{
		{Char: "@", AllowSpaces: true},
		{Char: "#"},
	}
}

type compiledTrigger struct {
	Trigger
	char    rune
	allowed *regexp.Regexp
	maxLen  int
}

func compileTrigger(t Trigger) (compiledTrigger, error) {
	runes := []rune(t.Char)
	if len(runes) != 1 {
		return compiledTrigger{}, fmt.Errorf("mention: trigger %q must be a single character", t.Char)
	}
	if unicode.IsSpace(runes[0]) || runes[0] == escapeRune {
		return compiledTrigger{}, fmt.Errorf("mention: trigger %q is not allowed", t.Char)
	}
	if t.MinLength < 0 {
		return compiledTrigger{}, fmt.Errorf("mention: trigger %q has negative min length", t.Char)
	}

	pattern := t.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	allowed, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return compiledTrigger{}, fmt.Errorf("mention: trigger %q pattern: %w", t.Char, err)
	}

	maxLen := t.MaxLength
	switch {
	case maxLen == 0:
		maxLen = DefaultMaxLength
	case maxLen < 0:
		maxLen = -1
	}
	if maxLen >= 0 && t.MinLength > maxLen {
		return compiledTrigger{}, fmt.Errorf("mention: trigger %q min length %d exceeds max length %d", t.Char, t.MinLength, maxLen)
	}

	return compiledTrigger{Trigger: t, char: runes[0], allowed: allowed, maxLen: maxLen}, nil
}

// allows reports whether r may appear inside this trigger's keyword.
func (c compiledTrigger) allows(r rune) bool {
	if r == ' ' && c.AllowSpaces {
		return true
	}
	return c.allowed.MatchString(string(r))
}

func (c compiledTrigger) tooLong(n int) bool {
	return c.maxLen >= 0 && n > c.maxLen
}
