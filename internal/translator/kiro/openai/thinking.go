package openai

import "strings"

const (
	thinkingOpenTag  = "<thinking>"
	thinkingCloseTag = "</thinking>"
)

// filterThinkingTags iteratively removes every <thinking>...</thinking>
// span from content. A matched span also swallows up to two immediately
// following newlines ("\n\n" preferred, else a single "\n"). An unmatched
// opening tag truncates the remainder of the string. The result is
// idempotent: re-running the filter on already-filtered content is a no-op.
func filterThinkingTags(content string) string {
	result := content
	for {
		start := strings.Index(result, thinkingOpenTag)
		if start == -1 {
			return result
		}

		rest := result[start:]
		end := strings.Index(rest, thinkingCloseTag)
		if end == -1 {
			return result[:start]
		}

		endPos := start + end + len(thinkingCloseTag)
		after := result[endPos:]

		trim := 0
		switch {
		case strings.HasPrefix(after, "\n\n"):
			trim = 2
		case strings.HasPrefix(after, "\n"):
			trim = 1
		}

		result = result[:start] + result[endPos+trim:]
	}
}
