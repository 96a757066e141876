package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/kiroproxy/gateway/internal/kiroevents"
	log "github.com/sirupsen/logrus"
)

// functionCallIDCounter provides a process-wide unique counter for synthetic
// function call identifiers, used when an upstream tool_use event somehow
// carries no id of its own.
var functionCallIDCounter uint64

// toolAccumulator gathers one tool_use's streamed argument fragments into a
// single JSON buffer, mirroring how the streaming path assembles the same
// event sequence incrementally.
type toolAccumulator struct {
	name    string
	buffer  strings.Builder
	stopped bool
}

// nonStreamCollector drains a full, already-buffered event sequence (the
// decoded frames of a non-streaming request) into one OpenAI response,
// accumulating tool_use argument fragments by id exactly the way the
// streaming path would have emitted them one chunk at a time.
type nonStreamCollector struct {
	model string

	content strings.Builder

	toolOrder []string
	tools     map[string]*toolAccumulator

	contextInputTokens *int
	outputTokens       int

	lengthExceeded bool
}

func newNonStreamCollector(model string) *nonStreamCollector {
	return &nonStreamCollector{
		model: model,
		tools: make(map[string]*toolAccumulator),
	}
}

// CollectNonStreamResponse folds a full sequence of decoded Kiro events into
// a single non-streaming OpenAI chat.completion response.
func CollectNonStreamResponse(id string, createdUnix int64, model string, inputTokens int, events []kiroevents.Event) *ChatCompletionResponse {
	c := newNonStreamCollector(model)
	for _, event := range events {
		c.apply(event)
	}
	return c.build(id, createdUnix, inputTokens)
}

func (c *nonStreamCollector) apply(event kiroevents.Event) {
	switch event.Kind {
	case kiroevents.KindAssistantResponse:
		c.content.WriteString(event.Content)

	case kiroevents.KindToolUse:
		acc, ok := c.tools[event.ToolUseID]
		if !ok {
			acc = &toolAccumulator{name: event.Name}
			c.tools[event.ToolUseID] = acc
			c.toolOrder = append(c.toolOrder, event.ToolUseID)
		}
		if event.Name != "" {
			acc.name = event.Name
		}
		acc.buffer.WriteString(event.Input)
		if event.Stop {
			acc.stopped = true
		}

	case kiroevents.KindContextUsage:
		tokens := promptTokensFromContextUsage(event.ContextUsagePercentage)
		c.contextInputTokens = &tokens

	case kiroevents.KindError:
		log.Warnf("kiro-openai: upstream error event code=%s message=%s", event.ErrorCode, event.ErrorMessage)

	case kiroevents.KindException:
		if event.ExceptionType == contentLengthExceededException {
			c.lengthExceeded = true
		} else {
			log.Warnf("kiro-openai: upstream exception type=%s message=%s", event.ExceptionType, event.Message)
		}
	}
}

func (c *nonStreamCollector) build(id string, createdUnix int64, inputTokens int) *ChatCompletionResponse {
	content := filterThinkingTags(c.content.String())
	c.outputTokens = estimateFragmentTokens(content)

	var toolCalls []ToolCall
	for _, toolUseID := range c.toolOrder {
		acc := c.tools[toolUseID]
		if !acc.stopped {
			continue
		}
		argsJSON := acc.buffer.String()
		if !json.Valid([]byte(argsJSON)) {
			argsJSON = "{}"
		}
		c.outputTokens += estimateFragmentTokens(argsJSON)

		callID := toolUseID
		if callID == "" {
			callID = GenerateToolCallID(acc.name)
		}
		idx := len(toolCalls)
		toolCalls = append(toolCalls, ToolCall{
			ID:       callID,
			Type:     "function",
			Index:    &idx,
			Function: FunctionCall{Name: acc.name, Arguments: argsJSON},
		})
	}

	var responseContent interface{} = content
	if len(toolCalls) > 0 && content == "" {
		responseContent = nil
	}

	finishReason := "stop"
	switch {
	case c.lengthExceeded:
		finishReason = "length"
	case len(toolCalls) > 0:
		finishReason = "tool_calls"
	}

	prompt := inputTokens
	if c.contextInputTokens != nil {
		prompt = *c.contextInputTokens
	}

	return &ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: createdUnix,
		Model:   c.model,
		Choices: []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:      "assistant",
				Content:   responseContent,
				ToolCalls: toolCalls,
			},
			FinishReason: finishReason,
		}},
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: c.outputTokens,
			TotalTokens:      prompt + c.outputTokens,
		},
	}
}

// GenerateToolCallID generates a unique tool call id in OpenAI's "call_..."
// shape, used only when an upstream tool_use arrives with no id of its own.
func GenerateToolCallID(toolName string) string {
	n := len(toolName)
	if n > 8 {
		n = 8
	}
	return fmt.Sprintf("call_%s_%d", toolName[:n], atomic.AddUint64(&functionCallIDCounter, 1))
}
