package api

// ReplyRequest represents the request payload for a chat reply
type ReplyRequest struct {
	UserMessage string `json:"user_message"`
}

// ReplyResponse represents the response payload for a chat reply
type ReplyResponse struct {
	Response string `json:"response"`
	Refused  bool   `json:"refused,omitempty"`
}

// SummarizeRequest represents the request payload for a summary
type SummarizeRequest struct {
	TextToSummarize string `json:"text_to_summarize"`
}

// SummarizeResponse represents the response payload for a summary
type SummarizeResponse struct {
	Summary string `json:"summary"`
	Refused bool   `json:"refused,omitempty"`
}

// TTSRequest represents the request payload for speech synthesis
type TTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// TTSResponse carries one base64-encoded WAV file
type TTSResponse struct {
	AudioData string `json:"audio_data"`
}

// BlockedResponse is returned when the provider refused to voice the text
type BlockedResponse struct {
	Blocked bool   `json:"blocked"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
