package openai

import (
	"github.com/google/uuid"
	"github.com/kiroproxy/gateway/internal/kiroevents"
	log "github.com/sirupsen/logrus"
)

// contentLengthExceededException is the one upstream exception type that
// changes the terminal finish_reason; every other exception is logged only.
const contentLengthExceededException = "ContentLengthExceededException"

// StreamContext carries everything needed to turn a sequence of decoded Kiro
// events into OpenAI chat.completion.chunk SSE payloads: identity fields
// shared by every chunk of one response, plus the running token/tool-call
// bookkeeping ProcessKiroEvent updates as events arrive.
type StreamContext struct {
	Model      string
	ResponseID string
	Created    int64

	InputTokens        int
	ContextInputTokens *int // set once an upstream ContextUsage event overrides the estimate
	OutputTokens       int

	InitialSent bool
	HasToolUse  bool

	toolIndices map[string]int
	nextToolIdx int

	IncludeUsage bool
	FinishReason *string
}

// NewStreamContext builds the fixed identity of a streaming response: model
// name, a "chatcmpl-" response id, and the estimated input token count used
// until/unless an upstream ContextUsage event supersedes it.
func NewStreamContext(model string, createdUnix int64, inputTokens int, includeUsage bool) *StreamContext {
	return &StreamContext{
		Model:        model,
		ResponseID:   "chatcmpl-" + uuid.New().String(),
		Created:      createdUnix,
		InputTokens:  inputTokens,
		toolIndices:  make(map[string]int),
		IncludeUsage: includeUsage,
	}
}

// GenerateInitialChunk produces the first chunk of the response: role-only
// delta, no content. It is a no-op (empty slice) once already sent.
func (s *StreamContext) GenerateInitialChunk() []ChatCompletionChunk {
	if s.InitialSent {
		return nil
	}
	s.InitialSent = true
	return []ChatCompletionChunk{s.baseChunk(Delta{Role: "assistant"}, nil)}
}

// ProcessKiroEvent folds one decoded Kiro event into the stream, returning
// zero or more OpenAI chunks to emit for it. Thinking-tag spans in assistant
// text are elided before the content reaches the client.
func (s *StreamContext) ProcessKiroEvent(event kiroevents.Event) []ChatCompletionChunk {
	switch event.Kind {
	case kiroevents.KindAssistantResponse:
		return s.processAssistantResponse(event)
	case kiroevents.KindToolUse:
		return s.processToolUse(event)
	case kiroevents.KindContextUsage:
		tokens := promptTokensFromContextUsage(event.ContextUsagePercentage)
		s.ContextInputTokens = &tokens
		return nil
	case kiroevents.KindError:
		log.Warnf("kiro-openai: upstream error event code=%s message=%s", event.ErrorCode, event.ErrorMessage)
		return nil
	case kiroevents.KindException:
		if event.ExceptionType == contentLengthExceededException {
			reason := "length"
			s.FinishReason = &reason
		} else {
			log.Warnf("kiro-openai: upstream exception type=%s message=%s", event.ExceptionType, event.Message)
		}
		return nil
	default:
		return nil
	}
}

func (s *StreamContext) processAssistantResponse(event kiroevents.Event) []ChatCompletionChunk {
	text := filterThinkingTags(event.Content)
	if text == "" {
		return nil
	}
	s.OutputTokens += estimateFragmentTokens(text)
	return []ChatCompletionChunk{s.baseChunk(Delta{Content: &text}, nil)}
}

func (s *StreamContext) processToolUse(event kiroevents.Event) []ChatCompletionChunk {
	idx, seen := s.toolIndices[event.ToolUseID]
	if !seen {
		idx = s.nextToolIdx
		s.toolIndices[event.ToolUseID] = idx
		s.nextToolIdx++
		s.HasToolUse = true

		call := DeltaToolCall{
			Index: idx,
			ID:    event.ToolUseID,
			Type:  "function",
			Function: &DeltaFunction{
				Name:      event.Name,
				Arguments: event.Input,
			},
		}
		s.OutputTokens += estimateFragmentTokens(event.Name) + estimateFragmentTokens(event.Input)
		return []ChatCompletionChunk{s.baseChunk(Delta{ToolCalls: []DeltaToolCall{call}}, nil)}
	}

	if event.Input == "" {
		return nil
	}
	return []ChatCompletionChunk{s.toolArgumentsChunk(idx, event.Input)}
}

func (s *StreamContext) toolArgumentsChunk(idx int, argumentsDelta string) ChatCompletionChunk {
	s.OutputTokens += estimateFragmentTokens(argumentsDelta)
	call := DeltaToolCall{Index: idx, Function: &DeltaFunction{Arguments: argumentsDelta}}
	return s.baseChunk(Delta{ToolCalls: []DeltaToolCall{call}}, nil)
}

// GenerateFinalChunk emits the finish_reason chunk (a reason pinned by an
// earlier event wins; otherwise tool_calls if any tool use was observed,
// else stop) and, when the client asked for stream_options.include_usage, a
// trailing usage-only chunk with no choices.
func (s *StreamContext) GenerateFinalChunk() []ChatCompletionChunk {
	reason := "stop"
	if s.HasToolUse {
		reason = "tool_calls"
	}
	if s.FinishReason != nil {
		reason = *s.FinishReason
	}

	chunks := []ChatCompletionChunk{s.baseChunk(Delta{}, &reason)}
	if s.IncludeUsage {
		usage := s.Usage()
		chunks = append(chunks, ChatCompletionChunk{
			ID:      s.ResponseID,
			Object:  "chat.completion.chunk",
			Created: s.Created,
			Model:   s.Model,
			Choices: []ChunkChoice{},
			Usage:   &usage,
		})
	}
	return chunks
}

// Usage computes the final prompt/completion/total token accounting: an
// upstream ContextUsage event, when seen, overrides the request-time
// estimate entirely.
func (s *StreamContext) Usage() Usage {
	prompt := s.InputTokens
	if s.ContextInputTokens != nil {
		prompt = *s.ContextInputTokens
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: s.OutputTokens,
		TotalTokens:      prompt + s.OutputTokens,
	}
}

func (s *StreamContext) baseChunk(delta Delta, finishReason *string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      s.ResponseID,
		Object:  "chat.completion.chunk",
		Created: s.Created,
		Model:   s.Model,
		Choices: []ChunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
}
