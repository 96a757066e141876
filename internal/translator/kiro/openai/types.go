// Package openai implements the OpenAI Chat Completions wire format and the
// translation engine that turns it into Kiro conversation-state payloads and
// back into OpenAI-shaped responses and SSE chunks.
package openai

import "encoding/json"

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	Tools               []Tool        `json:"tools,omitempty"`
	ToolChoice          interface{}   `json:"tool_choice,omitempty"`
	Stream              bool          `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
}

// StreamOptions carries the OpenAI stream_options bag.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// EffectiveMaxTokens applies the precedence rule: max_completion_tokens wins
// over the legacy max_tokens field; default is 4096 when neither is set.
func (r *ChatCompletionRequest) EffectiveMaxTokens() int {
	if r.MaxCompletionTokens != nil {
		return *r.MaxCompletionTokens
	}
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return 4096
}

// IncludeUsageInStream reports whether the client asked for a trailing usage
// chunk on a streaming response.
func (r *ChatCompletionRequest) IncludeUsageInStream() bool {
	return r.StreamOptions != nil && r.StreamOptions.IncludeUsage
}

// ChatMessage is one entry of the OpenAI messages array.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    *MessageContent `json:"content,omitempty"`
	ToolCalls  []ToolCall      `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// MessageContent is either a plain string or an ordered list of content
// parts (text / image_url). It unmarshals either wire shape transparently.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// UnmarshalJSON accepts both a bare string and an array of content parts.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.Parts = parts
	c.Text = ""
	return nil
}

// MarshalJSON re-emits whichever shape was populated; parts win when present.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ContentPart is one element of a multi-part message content array.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL holds the url of an image_url content part.
type ImageURL struct {
	URL string `json:"url"`
}

// Tool is an OpenAI function-tool definition.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes a callable function's name/description/schema.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is an assistant-issued function call.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Index    *int         `json:"index,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the name and JSON-encoded arguments of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatCompletionResponse is a non-streaming OpenAI response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice wraps the single message choice this gateway ever returns.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a non-streaming response.
type ResponseMessage struct {
	Role      string      `json:"role"`
	Content   interface{} `json:"content"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
}

// Usage mirrors OpenAI's token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed SSE data payload.
type ChatCompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	Choices           []ChunkChoice `json:"choices"`
	Usage             *Usage        `json:"usage,omitempty"`
	SystemFingerprint *string       `json:"system_fingerprint,omitempty"`
}

// ChunkChoice is the single streamed choice slot.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental content of one streaming chunk.
type Delta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []DeltaToolCall `json:"tool_calls,omitempty"`
}

// DeltaToolCall is a partial tool_calls entry inside a streaming delta.
type DeltaToolCall struct {
	Index    int            `json:"index"`
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type,omitempty"`
	Function *DeltaFunction `json:"function,omitempty"`
}

// DeltaFunction is the partial function payload of a DeltaToolCall.
type DeltaFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ErrorResponse is the OpenAI-shaped error envelope this gateway emits.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the body of ErrorResponse.
type ErrorBody struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    string  `json:"code,omitempty"`
}

// NewErrorResponse builds an error envelope with an empty code.
func NewErrorResponse(errType, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Message: message, Type: errType}}
}

// NewErrorResponseWithCode builds an error envelope carrying an error code.
func NewErrorResponseWithCode(errType, code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Message: message, Type: errType, Code: code}}
}

// AuthenticationErrorResponse is the fixed 401 body for bad bearer tokens.
func AuthenticationErrorResponse() ErrorResponse {
	return NewErrorResponseWithCode("invalid_request_error", "invalid_api_key", "Invalid API key")
}
