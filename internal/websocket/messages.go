package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/voxgate/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// Client to server.
	MessageTypeSpeak  MessageType = "speak"
	MessageTypeCancel MessageType = "cancel"

	// Server to client. Audio chunks travel as binary messages between
	// speech_start and speech_end.
	MessageTypeSpeechStart MessageType = "speech_start"
	MessageTypeSpeechEnd   MessageType = "speech_end"
	MessageTypeError       MessageType = "error"
)

// Error codes that do not come from a provider.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeBusy           = "busy"
	ErrorCodeInternal       = "internal_error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// SpeakMessage asks the server to voice Text.
type SpeakMessage struct {
	BaseMessage
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// SpeechRequest converts the message into a gateway request.
func (m *SpeakMessage) SpeechRequest() domain.SpeechRequest {
	return domain.SpeechRequest{Text: m.Text, VoiceID: m.Voice}
}

// CancelMessage aborts the utterance in progress, if any.
type CancelMessage struct {
	BaseMessage
}

// SpeechStartMessage announces that binary chunks follow.
type SpeechStartMessage struct {
	BaseMessage
	RequestID string `json:"request_id"`
}

// SpeechEndMessage closes an utterance and reports what was sent.
type SpeechEndMessage struct {
	BaseMessage
	RequestID string `json:"request_id"`
	Chunks    int    `json:"chunks"`
	Bytes     int    `json:"bytes"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"error_code"`
	Message   string `json:"message"`
}

// ParseClientMessage decodes and validates one text frame from the client.
func ParseClientMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSpeak:
		var msg SpeakMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid speak message: %w", err)
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeCancel:
		return &CancelMessage{BaseMessage: base}, nil

	case "":
		return nil, fmt.Errorf("message missing type field")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateSpeechStartMessage creates the message sent before the first chunk.
func CreateSpeechStartMessage(requestID string) *SpeechStartMessage {
	return &SpeechStartMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSpeechStart, Timestamp: now()},
		RequestID:   requestID,
	}
}

// CreateSpeechEndMessage creates the message sent after the last chunk.
func CreateSpeechEndMessage(requestID string, chunks, bytes int) *SpeechEndMessage {
	return &SpeechEndMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSpeechEnd, Timestamp: now()},
		RequestID:   requestID,
		Chunks:      chunks,
		Bytes:       bytes,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(requestID, code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError, Timestamp: now()},
		RequestID:   requestID,
		Code:        code,
		Message:     message,
	}
}

// CreateProviderErrorMessage maps a gateway error to an error message whose
// code is the error kind.
func CreateProviderErrorMessage(requestID string, err error) *ErrorMessage {
	code := string(domain.KindOf(err))
	if code == "" {
		code = ErrorCodeInternal
	}
	return CreateErrorMessage(requestID, code, err.Error())
}
