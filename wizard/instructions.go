package wizard

import (
	"context"
	"strings"

	"coursewizard/prompts"
)

// objectionInstruction returns the course's "Objections" prompt, or the
// default instruction when it cannot be fetched or does not exist. Only
// prompts that were found are cached.
func (r *Resolver) objectionInstruction(ctx context.Context, courseID string) string {
	if cached, ok := r.cache.Get(courseID); ok {
		return cached
	}
	if r.instructions == nil {
		return prompts.DefaultObjectionInstruction
	}

	instructions, err := r.instructions.FetchInstructions(ctx, courseID)
	if err != nil {
		r.log.Warn("Objection instructions unavailable, using default", "course_id", courseID, "error", err)
		return prompts.DefaultObjectionInstruction
	}
	for _, in := range instructions {
		if in.Type != prompts.ObjectionsInstructionType {
			continue
		}
		if prompt := strings.TrimSpace(in.Prompt); prompt != "" {
			r.cache.Add(courseID, prompt)
			return prompt
		}
	}
	r.log.Debug("No objection instruction configured, using default", "course_id", courseID)
	return prompts.DefaultObjectionInstruction
}
