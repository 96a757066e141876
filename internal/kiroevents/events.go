// Package kiroevents decodes the AWS event-stream binary framing Kiro uses
// for both its streaming and (single-frame-batch) non-streaming responses,
// and lifts decoded frames into the closed set of upstream Event variants
// the translation engine understands.
package kiroevents

import "encoding/json"

// EventKind is the tag of the closed upstream event union.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindAssistantResponse
	KindToolUse
	KindContextUsage
	KindError
	KindException
)

// Event is a decoded upstream frame lifted into a typed variant. Exactly the
// fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// KindAssistantResponse
	Content string

	// KindToolUse
	ToolUseID string
	Name      string
	Input     string
	Stop      bool

	// KindContextUsage
	ContextUsagePercentage float64

	// KindError
	ErrorCode    string
	ErrorMessage string

	// KindException
	ExceptionType string
	Message       string
}

// eventEnvelope is the JSON payload shape carried by a frame, keyed by the
// same field names across every event type Kiro emits; unused fields for a
// given `:event-type` are simply absent.
type eventEnvelope struct {
	Content                string  `json:"content"`
	ToolUseID              string  `json:"toolUseId"`
	Name                   string  `json:"name"`
	Input                  string  `json:"input"`
	Stop                   bool    `json:"stop"`
	ContextUsagePercentage float64 `json:"contextUsagePercentage"`
	ErrorCode              string  `json:"errorCode"`
	ErrorMessage           string  `json:"errorMessage"`
	ExceptionType          string  `json:"exceptionType"`
	Message                string  `json:"message"`
}

// EventFromFrame lifts a decoded Frame into a typed Event. Unknown
// event-type headers produce a KindUnknown event rather than an error; the
// caller skips those.
func EventFromFrame(frame Frame) (Event, error) {
	var env eventEnvelope
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &env); err != nil {
			return Event{}, err
		}
	}

	switch frame.EventType {
	case "assistantResponseEvent":
		return Event{Kind: KindAssistantResponse, Content: env.Content}, nil
	case "toolUseEvent":
		return Event{Kind: KindToolUse, ToolUseID: env.ToolUseID, Name: env.Name, Input: env.Input, Stop: env.Stop}, nil
	case "contextUsageEvent", "usageEvent":
		return Event{Kind: KindContextUsage, ContextUsagePercentage: env.ContextUsagePercentage}, nil
	case "error":
		return Event{Kind: KindError, ErrorCode: env.ErrorCode, ErrorMessage: env.ErrorMessage}, nil
	case "exception":
		return Event{Kind: KindException, ExceptionType: env.ExceptionType, Message: env.Message}, nil
	default:
		return Event{Kind: KindUnknown}, nil
	}
}
