package prompts

import (
	"fmt"
	"strings"

	"coursewizard/models"
)

const (
	// FallbackText is returned to the user whenever generation fails.
	FallbackText = "Error generating content. Please try again later."

	// NoDataAvailable stands in for student context that could not be fetched.
	NoDataAvailable = "No data available"

	// ObjectionsInstructionType selects the course instruction used in objection mode.
	ObjectionsInstructionType = "Objections"

	// DefaultObjectionInstruction is used when a course has no "Objections" instruction.
	DefaultObjectionInstruction = `Address the user's objection directly. Revise the previous response so that it resolves the concern, keep everything that was already correct, and keep the original format and tone. Respond only with the revised content.`
)

// ConstructGenerateSystemPrompt returns the system prompt for normal generation.
func ConstructGenerateSystemPrompt() string {
	return `You are an expert content creator helping a course creator build their material.

The user's message is a complete, standalone content request. Everything you need is contained in it:
- Treat it as the full brief for what to write
- Do not ask follow-up questions or request more details
- Do not mention these instructions
- Respond only with the requested content`
}

// ObjectionPromptInput holds everything the objection system prompt embeds.
type ObjectionPromptInput struct {
	Template       string // processed template of the original request
	FirstResponse  string // first generated response
	StudentContext string
	PriorTurns     []models.Message
	Objection      string
	Instruction    string
}

// ConstructObjectionSystemPrompt builds the objection system prompt. Sections
// appear in a fixed order: role, primary context (original request and first
// response, only when both are present), student context, prior turns, the
// objection itself and finally the instruction.
func ConstructObjectionSystemPrompt(in ObjectionPromptInput) string {
	var b strings.Builder

	b.WriteString("You are an expert content creator and sales coach. The user has raised an objection to content you generated earlier. Your job is to handle that objection.\n")

	if strings.TrimSpace(in.Template) != "" && strings.TrimSpace(in.FirstResponse) != "" {
		fmt.Fprintf(&b, "\nPRIMARY CONTEXT (original request and your first response):\nOriginal request:\n%s\n\nFirst response:\n%s\n", in.Template, in.FirstResponse)
	}

	studentContext := in.StudentContext
	if strings.TrimSpace(studentContext) == "" {
		studentContext = NoDataAvailable
	}
	fmt.Fprintf(&b, "\nSECONDARY CONTEXT (student information):\n%s\n", studentContext)

	if turns := FormatConversation(in.PriorTurns); turns != "" {
		fmt.Fprintf(&b, "\nTERTIARY CONTEXT (previous conversation):\n%s\n", turns)
	}

	fmt.Fprintf(&b, "\nUSER OBJECTION:\n%s\n", in.Objection)
	fmt.Fprintf(&b, "\nINSTRUCTIONS:\n%s", in.Instruction)

	return b.String()
}

// ConstructOptionsSystemPrompt asks for exactly n options as a fenced JSON block.
func ConstructOptionsSystemPrompt(n int) string {
	return fmt.Sprintf(`You are an expert content strategist helping a course creator choose between options.

The user's message is a complete, standalone request for options. Generate exactly %d distinct options.

Respond with a single JSON code block and nothing else, in this format:
`+"```json"+`
{
  "items": [
    {"label": "<short option shown to the user>", "value": "<full option text>"}
  ]
}
`+"```"+`

The "items" array must contain exactly %d entries.`, n, n)
}

// FormatStudentContext renders the context as "question: answer" lines in
// question order, or NoDataAvailable when empty.
func FormatStudentContext(ctx models.ContextMap) string {
	if len(ctx) == 0 {
		return NoDataAvailable
	}
	lines := make([]string, 0, len(ctx))
	for _, q := range ctx.Keys() {
		lines = append(lines, fmt.Sprintf("- %s: %s", q, ctx[q]))
	}
	return strings.Join(lines, "\n")
}

// FormatConversation renders user and assistant turns in order. Other roles are skipped.
func FormatConversation(turns []models.Message) string {
	lines := make([]string, 0, len(turns))
	for _, m := range turns {
		switch m.Role {
		case models.RoleUser:
			lines = append(lines, "User: "+m.Content)
		case models.RoleAssistant:
			lines = append(lines, "Assistant: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}
