package openai

import "strings"

// MapModel resolves an OpenAI-facing model name to a Kiro model id.
// Matching is case-insensitive substring search; "sonnet" is checked before
// "opus" so a name containing both resolves to sonnet. Everything else,
// including "haiku", falls through to the haiku default — there is no
// reject path.
func MapModel(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "sonnet"):
		return "claude-sonnet-4.5"
	case strings.Contains(lower, "opus"):
		return "claude-opus-4.5"
	default:
		return "claude-haiku-4.5"
	}
}
