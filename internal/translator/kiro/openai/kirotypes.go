package openai

import "encoding/json"

// KiroRequest wraps the conversation state the Kiro API expects, plus the
// profileArn taken from the gateway config and the (always-empty in this gateway)
// project passthrough fields the real wire schema carries.
type KiroRequest struct {
	ConversationState ConversationState `json:"conversationState"`
	ProfileArn        string            `json:"profileArn,omitempty"`
	ProjectName       string            `json:"projectName,omitempty"`
	ClientData        json.RawMessage   `json:"clientData,omitempty"`
}

// KiroPayload is an alias of KiroRequest kept for symmetry with the upstream
// response-shaped structs decoded in tests; the wire shape is identical.
type KiroPayload = KiroRequest

// ConversationState is the full Kiro conversation payload for one turn.
type ConversationState struct {
	ConversationID      string        `json:"conversationId"`
	AgentContinuationID string        `json:"agentContinuationId,omitempty"`
	AgentTaskType       string        `json:"agentTaskType,omitempty"`
	ChatTriggerType     string        `json:"chatTriggerType,omitempty"`
	CurrentMessage      CurrentMessage `json:"currentMessage"`
	History             []HistoryEntry `json:"history,omitempty"`
}

// CurrentMessage wraps the single current-turn user message.
type CurrentMessage struct {
	UserInputMessage UserInputMessage `json:"userInputMessage"`
}

// HistoryEntry is one element of the alternating history array: exactly one
// of UserInputMessage / AssistantResponseMessage is populated.
type HistoryEntry struct {
	UserInputMessage          *UserInputMessage          `json:"userInputMessage,omitempty"`
	AssistantResponseMessage  *AssistantResponseMessage  `json:"assistantResponseMessage,omitempty"`
}

// UserInputMessage is a user-role turn, either the current message or a
// history entry.
type UserInputMessage struct {
	Content                  string                    `json:"content"`
	ModelID                  string                    `json:"modelId,omitempty"`
	Origin                   string                    `json:"origin,omitempty"`
	Images                   []KiroImage               `json:"images,omitempty"`
	UserInputMessageContext  *UserInputMessageContext  `json:"userInputMessageContext,omitempty"`
}

// AssistantResponseMessage is an assistant-role history turn.
type AssistantResponseMessage struct {
	Content  string          `json:"content"`
	ToolUses []ToolUseEntry  `json:"toolUses,omitempty"`
}

// UserInputMessageContext carries the tool definitions visible to the model
// and the tool results answering prior tool_use calls.
type UserInputMessageContext struct {
	Tools       []Tool_       `json:"tools,omitempty"`
	ToolResults []ToolResult  `json:"toolResults,omitempty"`
}

// Tool_ is a Kiro tool definition (named with a trailing underscore to avoid
// colliding with the OpenAI Tool type in this package).
type Tool_ struct {
	ToolSpecification ToolSpecification `json:"toolSpecification"`
}

// ToolSpecification is the Kiro-side tool schema.
type ToolSpecification struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema wraps an arbitrary JSON schema document.
type InputSchema struct {
	JSON json.RawMessage `json:"json"`
}

// InputSchemaFromValue marshals an arbitrary value into an InputSchema.
func InputSchemaFromValue(v interface{}) InputSchema {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = []byte(`{}`)
	}
	return InputSchema{JSON: raw}
}

// ToolResult is a completed tool invocation's answer, keyed by tool_use id.
type ToolResult struct {
	ToolUseID string              `json:"toolUseId"`
	Status    string              `json:"status"`
	Content   []ToolResultContent `json:"content"`
}

// ToolResultContent is one content block of a ToolResult; only text blocks
// are produced by this gateway.
type ToolResultContent struct {
	Text string `json:"text"`
}

// NewSuccessToolResult builds a ToolResult with a single text block and a
// success status, matching the only shape this gateway emits.
func NewSuccessToolResult(toolUseID, text string) ToolResult {
	return ToolResult{
		ToolUseID: toolUseID,
		Status:    "success",
		Content:   []ToolResultContent{{Text: text}},
	}
}

// ToolUseEntry is one tool invocation recorded on an assistant history turn.
type ToolUseEntry struct {
	ToolUseID string          `json:"toolUseId"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// KiroImage is an inline base64-encoded image attachment.
type KiroImage struct {
	Format string          `json:"format"`
	Source KiroImageSource `json:"source"`
}

// KiroImageSource holds the base64 bytes of a KiroImage.
type KiroImageSource struct {
	Bytes string `json:"bytes"`
}
