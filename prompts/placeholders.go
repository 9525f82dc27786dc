package prompts

import (
	"regexp"

	"coursewizard/models"
)

// placeholderPattern matches {name} where name is any run of characters except "}".
var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ResolvePlaceholders substitutes every {name} found in ctx with its answer,
// verbatim. Unknown placeholders stay in the output as written and are
// returned, in order of appearance, as diagnostics.
func ResolvePlaceholders(template string, ctx models.ContextMap) (string, []string) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if answer, ok := ctx[name]; ok {
			return answer
		}
		missing = append(missing, name)
		return token
	})
	return out, missing
}

// Placeholders lists the placeholder names used by template in order of appearance.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
