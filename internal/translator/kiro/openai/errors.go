package openai

import "fmt"

// ConversionError is the typed failure set the request transcoder can return.
type ConversionError struct {
	Kind  ConversionErrorKind
	Value string
}

// ConversionErrorKind enumerates the closed set of transcoding failures.
type ConversionErrorKind int

const (
	// ErrUnsupportedModel means map_model could not resolve a model id.
	// In practice map_model never fails (it always defaults to haiku), but
	// the kind is kept so callers can still branch on it exhaustively.
	ErrUnsupportedModel ConversionErrorKind = iota
	ErrEmptyMessages
	ErrInvalidImageURL
)

func (e *ConversionError) Error() string {
	switch e.Kind {
	case ErrUnsupportedModel:
		return fmt.Sprintf("model not supported: %s", e.Value)
	case ErrEmptyMessages:
		return "message list is empty"
	case ErrInvalidImageURL:
		return fmt.Sprintf("invalid image URL: %s", e.Value)
	default:
		return "unknown conversion error"
	}
}

func errUnsupportedModel(model string) error { return &ConversionError{Kind: ErrUnsupportedModel, Value: model} }
func errEmptyMessages() error                { return &ConversionError{Kind: ErrEmptyMessages} }
func errInvalidImageURL(url string) error    { return &ConversionError{Kind: ErrInvalidImageURL, Value: url} }
