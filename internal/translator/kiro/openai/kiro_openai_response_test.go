package openai

import (
	"testing"

	"github.com/kiroproxy/gateway/internal/kiroevents"
)

func TestCollectNonStreamResponseTextOnly(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindAssistantResponse, Content: "<thinking>plan</thinking>\n\nHello"},
	}
	resp := CollectNonStreamResponse("chatcmpl-1", 1000, "claude-sonnet-4.5", 5, events)
	if resp.Choices[0].Message.Content != "Hello" {
		t.Errorf("expected thinking tags elided, got %v", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected stop finish reason, got %s", resp.Choices[0].FinishReason)
	}
	if resp.Usage.PromptTokens != 5 {
		t.Errorf("expected prompt tokens from estimate, got %d", resp.Usage.PromptTokens)
	}
}

func TestCollectNonStreamResponseAccumulatesToolArguments(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindToolUse, ToolUseID: "t1", Name: "Read", Input: `{"path"`},
		{Kind: kiroevents.KindToolUse, ToolUseID: "t1", Input: `:"/a"}`, Stop: true},
	}
	resp := CollectNonStreamResponse("chatcmpl-2", 1000, "claude-haiku-4.5", 5, events)
	if resp.Choices[0].FinishReason != "tool_calls" {
		t.Fatalf("expected tool_calls finish reason, got %s", resp.Choices[0].FinishReason)
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) != 1 || calls[0].Function.Arguments != `{"path":"/a"}` {
		t.Fatalf("expected assembled tool arguments, got %+v", calls)
	}
	if resp.Choices[0].Message.Content != nil {
		t.Errorf("expected nil content when only tool calls present, got %v", resp.Choices[0].Message.Content)
	}
}

func TestCollectNonStreamResponseInvalidToolArgumentsFallBackToEmptyObject(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindToolUse, ToolUseID: "t1", Name: "Search", Input: "not json", Stop: true},
	}
	resp := CollectNonStreamResponse("chatcmpl-3", 1000, "claude-haiku-4.5", 5, events)
	if resp.Choices[0].Message.ToolCalls[0].Function.Arguments != "{}" {
		t.Errorf("expected empty object fallback, got %s", resp.Choices[0].Message.ToolCalls[0].Function.Arguments)
	}
}

func TestCollectNonStreamResponseContextUsageOverridesPromptTokens(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindAssistantResponse, Content: "hi"},
		{Kind: kiroevents.KindContextUsage, ContextUsagePercentage: 50},
	}
	resp := CollectNonStreamResponse("chatcmpl-4", 1000, "claude-sonnet-4.5", 999, events)
	if resp.Usage.PromptTokens != 100000 {
		t.Errorf("expected ContextUsage override to 100000, got %d", resp.Usage.PromptTokens)
	}
}

func TestCollectNonStreamResponseContentLengthExceededWinsOverToolCalls(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindToolUse, ToolUseID: "t1", Name: "Read", Stop: true},
		{Kind: kiroevents.KindException, ExceptionType: "ContentLengthExceededException"},
	}
	resp := CollectNonStreamResponse("chatcmpl-5", 1000, "claude-sonnet-4.5", 5, events)
	if resp.Choices[0].FinishReason != "length" {
		t.Errorf("expected length to win, got %s", resp.Choices[0].FinishReason)
	}
}

func TestCollectNonStreamResponseOmitsToolCallNeverStopped(t *testing.T) {
	events := []kiroevents.Event{
		{Kind: kiroevents.KindAssistantResponse, Content: "hi"},
		{Kind: kiroevents.KindToolUse, ToolUseID: "t1", Name: "Read", Input: `{"path":"/a"}`},
	}
	resp := CollectNonStreamResponse("chatcmpl-6", 1000, "claude-sonnet-4.5", 5, events)
	if len(resp.Choices[0].Message.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls without a stop==true fragment, got %+v", resp.Choices[0].Message.ToolCalls)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected stop finish reason when no tool call completed, got %s", resp.Choices[0].FinishReason)
	}
}

func TestGenerateToolCallIDIsUnique(t *testing.T) {
	a := GenerateToolCallID("Read")
	b := GenerateToolCallID("Read")
	if a == b {
		t.Errorf("expected unique ids, got %s twice", a)
	}
}
