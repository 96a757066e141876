package openai

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxToolDescriptionRunes is the Unicode-scalar-value ceiling a tool
// description is truncated to.
const maxToolDescriptionRunes = 10000

// convertTools translates OpenAI function-tool definitions into Kiro tool
// specs. Only entries whose type is "function" are carried through.
func convertTools(tools []Tool) []Tool_ {
	out := make([]Tool_, 0, len(tools))
	for _, t := range tools {
		if t.Type != "function" {
			continue
		}

		description := truncateRunes(t.Function.Description, maxToolDescriptionRunes)

		var schema InputSchema
		if len(t.Function.Parameters) > 0 {
			schema = InputSchema{JSON: t.Function.Parameters}
		} else {
			schema = InputSchemaFromValue(map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			})
		}

		out = append(out, Tool_{
			ToolSpecification: ToolSpecification{
				Name:        t.Function.Name,
				Description: description,
				InputSchema: schema,
			},
		})
	}
	return out
}

// truncateRunes trims s to at most n Unicode scalar values, counting code
// points rather than bytes.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// collectHistoryToolNames gathers, in first-sight order, the distinct tool
// names referenced by any assistant tool_use entry in history.
func collectHistoryToolNames(history []HistoryEntry) []string {
	var names []string
	seen := make(map[string]bool)
	for _, entry := range history {
		if entry.AssistantResponseMessage == nil {
			continue
		}
		for _, tu := range entry.AssistantResponseMessage.ToolUses {
			if !seen[tu.Name] {
				seen[tu.Name] = true
				names = append(names, tu.Name)
			}
		}
	}
	return names
}

// createPlaceholderTool builds a replay-safe tool spec for a name used in
// history but absent from the request's tool list. additionalProperties is
// intentionally true: the historical call already committed to an input
// shape, so validation must not reject replay.
func createPlaceholderTool(name string) Tool_ {
	return Tool_{
		ToolSpecification: ToolSpecification{
			Name:        name,
			Description: "Tool used in conversation history",
			InputSchema: InputSchemaFromValue(map[string]interface{}{
				"$schema":              "http://json-schema.org/draft-07/schema#",
				"type":                 "object",
				"properties":           map[string]interface{}{},
				"required":             []string{},
				"additionalProperties": true,
			}),
		},
	}
}

// addMissingPlaceholders appends a placeholder tool for every history tool
// name not already present (case-insensitively) in tools.
func addMissingPlaceholders(tools []Tool_, history []HistoryEntry) []Tool_ {
	existing := make(map[string]bool, len(tools))
	for _, t := range tools {
		existing[strings.ToLower(t.ToolSpecification.Name)] = true
	}
	for _, name := range collectHistoryToolNames(history) {
		if !existing[strings.ToLower(name)] {
			tools = append(tools, createPlaceholderTool(name))
			existing[strings.ToLower(name)] = true
		}
	}
	return tools
}

// validateToolPairing keeps only the tool_results whose id matches some
// tool_use in history (first match wins; the matched id is consumed so a
// second result for the same id is dropped as a duplicate). Tool_use ids
// left unmatched are logged as orphans but never fail the request.
func validateToolPairing(history []HistoryEntry, toolResults []ToolResult) []ToolResult {
	valid := make(map[string]bool)
	for _, entry := range history {
		if entry.AssistantResponseMessage == nil {
			continue
		}
		for _, tu := range entry.AssistantResponseMessage.ToolUses {
			valid[tu.ToolUseID] = true
		}
	}

	filtered := make([]ToolResult, 0, len(toolResults))
	for _, result := range toolResults {
		if valid[result.ToolUseID] {
			filtered = append(filtered, result)
			delete(valid, result.ToolUseID)
		} else {
			log.Warnf("kiro-openai: dropping orphaned tool_result, tool_use_id=%s", result.ToolUseID)
		}
	}

	for orphan := range valid {
		log.Warnf("kiro-openai: orphaned tool_use with no tool_result, tool_use_id=%s", orphan)
	}

	return filtered
}
