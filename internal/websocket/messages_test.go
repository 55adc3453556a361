package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/voxgate/domain"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    interface{}
		wantErr bool
	}{
		{
			name:    "speak with voice",
			message: `{"type": "speak", "text": "سلام", "voice": "Puck"}`,
			want:    &SpeakMessage{BaseMessage: BaseMessage{Type: MessageTypeSpeak}, Text: "سلام", Voice: "Puck"},
		},
		{
			name:    "speak without voice",
			message: `{"type": "speak", "text": "hello"}`,
			want:    &SpeakMessage{BaseMessage: BaseMessage{Type: MessageTypeSpeak}, Text: "hello"},
		},
		{
			name:    "cancel",
			message: `{"type": "cancel"}`,
			want:    &CancelMessage{BaseMessage: BaseMessage{Type: MessageTypeCancel}},
		},
		{
			name:    "speak without text",
			message: `{"type": "speak", "text": "   "}`,
			wantErr: true,
		},
		{
			name:    "missing type",
			message: `{"text": "hello"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			message: `{"type": "listening_start"}`,
			wantErr: true,
		},
		{
			name:    "invalid JSON",
			message: `{"type": "speak", "text": }`,
			wantErr: true,
		},
		{
			name:    "text is not a string",
			message: `{"type": "speak", "text": 42}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClientMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			switch want := tt.want.(type) {
			case *SpeakMessage:
				msg, ok := got.(*SpeakMessage)
				if !ok {
					t.Fatalf("Expected *SpeakMessage, got %T", got)
				}
				if msg.Text != want.Text || msg.Voice != want.Voice {
					t.Errorf("Expected %+v, got %+v", want, msg)
				}
			case *CancelMessage:
				if _, ok := got.(*CancelMessage); !ok {
					t.Fatalf("Expected *CancelMessage, got %T", got)
				}
			}
		})
	}
}

func TestSpeakMessage_SpeechRequest(t *testing.T) {
	msg := &SpeakMessage{Text: "hello", Voice: "Kore"}
	req := msg.SpeechRequest()
	if req.Text != "hello" || req.VoiceID != "Kore" {
		t.Errorf("Unexpected speech request %+v", req)
	}
}

func TestCreateSpeechEndMessage(t *testing.T) {
	msg := CreateSpeechEndMessage("req-1", 3, 4826)

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if decoded["type"] != "speech_end" {
		t.Errorf("Expected type speech_end, got %v", decoded["type"])
	}
	if decoded["chunks"] != float64(3) {
		t.Errorf("Expected 3 chunks, got %v", decoded["chunks"])
	}
	if decoded["bytes"] != float64(4826) {
		t.Errorf("Expected 4826 bytes, got %v", decoded["bytes"])
	}
	if decoded["request_id"] != "req-1" {
		t.Errorf("Expected request_id req-1, got %v", decoded["request_id"])
	}
	if decoded["timestamp"] == "" {
		t.Error("Expected timestamp to be set")
	}
}

func TestCreateProviderErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "provider error",
			err:      domain.NewMimeMismatch("gemini", "audio/mpeg"),
			wantCode: "mime_mismatch",
		},
		{
			name:     "rate limited",
			err:      domain.NewUpstreamRejected("gemini", 429, "quota", nil),
			wantCode: "upstream_rejected",
		},
		{
			name:     "plain error",
			err:      json.Unmarshal([]byte("{"), &struct{}{}),
			wantCode: ErrorCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := CreateProviderErrorMessage("req-1", tt.err)
			if msg.Type != MessageTypeError {
				t.Errorf("Expected error type, got %s", msg.Type)
			}
			if msg.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, msg.Code)
			}
			if msg.Message != tt.err.Error() {
				t.Errorf("Expected message %q, got %q", tt.err.Error(), msg.Message)
			}
		})
	}
}
