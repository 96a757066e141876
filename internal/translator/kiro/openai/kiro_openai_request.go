package openai

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// ConversionResult is the outcome of a successful ConvertRequest call.
type ConversionResult struct {
	ConversationState ConversationState
	OriginalModel     string
	ModelID           string
}

// ConvertRequest builds a Kiro ConversationState from an OpenAI chat
// completion request in a single pass over the messages, per the request
// transcoder algorithm: system messages collapse into a synthetic
// instruction pair at the front of history, consecutive user messages merge
// into one history entry, every assistant message closes the pending user
// buffer, tool-role messages become ToolResult candidates validated against
// tool_use ids actually present in history, and the final user message
// becomes the current turn.
func ConvertRequest(req *ChatCompletionRequest) (*ConversionResult, error) {
	modelID := MapModel(req.Model)

	if len(req.Messages) == 0 {
		return nil, errEmptyMessages()
	}

	conversationID := uuid.New().String()
	agentContinuationID := uuid.New().String()

	systemContent, history, lastUserContent, lastImages, toolResults, err := processMessages(req.Messages, modelID)
	if err != nil {
		return nil, err
	}

	tools := convertTools(req.Tools)
	tools = addMissingPlaceholders(tools, history)
	validatedResults := validateToolPairing(history, toolResults)

	var ctx *UserInputMessageContext
	if len(tools) > 0 || len(validatedResults) > 0 {
		ctx = &UserInputMessageContext{}
		if len(tools) > 0 {
			ctx.Tools = tools
		}
		if len(validatedResults) > 0 {
			ctx.ToolResults = validatedResults
		}
	}

	currentUser := UserInputMessage{
		Content:                 lastUserContent,
		ModelID:                 modelID,
		Origin:                  "AI_EDITOR",
		UserInputMessageContext: ctx,
	}
	if len(lastImages) > 0 {
		currentUser.Images = lastImages
	}

	fullHistory := make([]HistoryEntry, 0, len(history)+2)
	if systemContent != "" {
		fullHistory = append(fullHistory,
			HistoryEntry{UserInputMessage: &UserInputMessage{Content: systemContent, ModelID: modelID}},
			HistoryEntry{AssistantResponseMessage: &AssistantResponseMessage{Content: "I will follow these instructions."}},
		)
	}
	fullHistory = append(fullHistory, history...)

	state := ConversationState{
		ConversationID:      conversationID,
		AgentContinuationID: agentContinuationID,
		AgentTaskType:       "vibe",
		ChatTriggerType:     "MANUAL",
		CurrentMessage:      CurrentMessage{UserInputMessage: currentUser},
		History:             fullHistory,
	}

	return &ConversionResult{ConversationState: state, OriginalModel: req.Model, ModelID: modelID}, nil
}

type userBufferEntry struct {
	text   string
	images []KiroImage
}

// processMessages walks the message array once, returning the collapsed
// system text, the built history, the current-turn user text/images, and
// the side list of tool results gathered from "tool" role messages.
func processMessages(messages []ChatMessage, modelID string) (string, []HistoryEntry, string, []KiroImage, []ToolResult, error) {
	var systemParts []string
	var history []HistoryEntry
	var lastUserContent string
	var lastImages []KiroImage
	var toolResults []ToolResult
	var userBuffer []userBufferEntry

	for i, msg := range messages {
		isLast := i == len(messages)-1

		switch msg.Role {
		case "system":
			systemParts = append(systemParts, extractTextContent(msg.Content))

		case "user":
			text, images, err := extractContentWithImages(msg.Content)
			if err != nil {
				return "", nil, "", nil, nil, err
			}
			if isLast {
				lastUserContent = text
				lastImages = images
			} else {
				userBuffer = append(userBuffer, userBufferEntry{text: text, images: images})
			}

		case "assistant":
			if len(userBuffer) > 0 {
				history = append(history, HistoryEntry{UserInputMessage: mergeUserBuffer(userBuffer, modelID)})
				userBuffer = nil
			}
			history = append(history, HistoryEntry{AssistantResponseMessage: convertAssistantMessage(msg)})

		case "tool":
			if msg.ToolCallID != "" {
				toolResults = append(toolResults, NewSuccessToolResult(msg.ToolCallID, extractTextContent(msg.Content)))
			}
		}
	}

	if len(userBuffer) > 0 {
		history = append(history, HistoryEntry{UserInputMessage: mergeUserBuffer(userBuffer, modelID)})
		history = append(history, HistoryEntry{AssistantResponseMessage: &AssistantResponseMessage{Content: "OK"}})
	}

	return strings.Join(systemParts, "\n"), history, lastUserContent, lastImages, toolResults, nil
}

// extractTextContent joins every text part of a message's content (or the
// plain string) with newlines; nil content yields an empty string.
func extractTextContent(content *MessageContent) string {
	if content == nil {
		return ""
	}
	if content.Parts == nil {
		return content.Text
	}
	var texts []string
	for _, part := range content.Parts {
		if part.Type == "text" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// extractContentWithImages separates a message's content into joined text
// and the images it referenced, decoding each image_url part.
func extractContentWithImages(content *MessageContent) (string, []KiroImage, error) {
	if content == nil {
		return "", nil, nil
	}
	if content.Parts == nil {
		return content.Text, nil, nil
	}

	var texts []string
	var images []KiroImage
	for _, part := range content.Parts {
		switch part.Type {
		case "text":
			texts = append(texts, part.Text)
		case "image_url":
			if part.ImageURL == nil {
				continue
			}
			img, err := parseImageURL(part.ImageURL.URL)
			if err != nil {
				return "", nil, err
			}
			if img != nil {
				images = append(images, *img)
			}
		}
	}
	return strings.Join(texts, "\n"), images, nil
}

// mergeUserBuffer collapses consecutive buffered user messages into one
// history entry: texts newline-joined, images concatenated in order.
func mergeUserBuffer(buffer []userBufferEntry, modelID string) *UserInputMessage {
	var texts []string
	var images []KiroImage
	for _, entry := range buffer {
		if entry.text != "" {
			texts = append(texts, entry.text)
		}
		images = append(images, entry.images...)
	}
	msg := &UserInputMessage{Content: strings.Join(texts, "\n"), ModelID: modelID}
	if len(images) > 0 {
		msg.Images = images
	}
	return msg
}

// convertAssistantMessage translates an assistant message's text and
// tool_calls into a Kiro AssistantResponseMessage. Arguments that fail to
// parse as JSON fall back to an empty object rather than failing the
// request.
func convertAssistantMessage(msg ChatMessage) *AssistantResponseMessage {
	assistant := &AssistantResponseMessage{Content: extractTextContent(msg.Content)}

	if len(msg.ToolCalls) == 0 {
		return assistant
	}

	uses := make([]ToolUseEntry, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		input := json.RawMessage(call.Function.Arguments)
		if !json.Valid(input) {
			input = json.RawMessage(`{}`)
		}
		uses = append(uses, ToolUseEntry{
			ToolUseID: call.ID,
			Name:      call.Function.Name,
			Input:     input,
		})
	}
	assistant.ToolUses = uses
	return assistant
}
