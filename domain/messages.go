package domain

// CompletionRequest is a single-turn text completion sent to a TextCompleter.
type CompletionRequest struct {
	Text         string
	SystemPrompt string
	Temperature  float32
	// TopP is left to the provider default when nil.
	TopP            *float32
	MaxOutputTokens int
}

// CompletionResult is the outcome of a completion that reached the upstream.
// Exactly one of Text or Refusal is meaningful.
type CompletionResult struct {
	Text    string
	Refusal *Refusal
}

// Refused reports whether the upstream declined to answer for policy reasons.
func (r CompletionResult) Refused() bool {
	return r.Refusal != nil
}

// Refusal describes a content-policy refusal. It is a successful outcome of
// the call, not an error: callers render it as a normal message.
type Refusal struct {
	// Reason is the provider's machine-readable block reason, e.g. "SAFETY".
	Reason string `json:"reason"`
	// Message is the provider's human-readable explanation, if any.
	Message string `json:"message,omitempty"`
}

// SpeechRequest asks a SpeechSynthesizer to voice Text with VoiceID.
type SpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice"`
}

// ProviderInfo describes the adapter bound to one capability.
type ProviderInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}
