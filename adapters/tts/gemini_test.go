package tts

import (
	"bytes"
	"context"
	"iter"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/voxgate/domain"
)

type fakeAudioGenerator struct {
	responses []*genai.GenerateContentResponse
	err       error

	calls  int
	model  string
	text   string
	config *genai.GenerateContentConfig
	budget time.Duration
}

func (f *fakeAudioGenerator) record(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) {
	f.calls++
	if deadline, ok := ctx.Deadline(); ok {
		f.budget = time.Until(deadline)
	}
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
}

func (f *fakeAudioGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.record(ctx, model, contents, config)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &genai.GenerateContentResponse{}, nil
	}
	return f.responses[0], nil
}

func (f *fakeAudioGenerator) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.record(ctx, model, contents, config)
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, r := range f.responses {
			if !yield(r, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func audioResponse(mimeType string, pcm []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: pcm}}},
			},
		}},
	}
}

func collect(seq iter.Seq2[[]byte, error]) ([][]byte, error) {
	var out [][]byte
	for f, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

func TestGeminiTTS_Speak_Streaming(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
		audioResponse("audio/L16;codec=pcm;rate=24000", bytes.Repeat([]byte{1, 0}, 100)),
		{}, // metadata-only event
		audioResponse("audio/L16; rate=24000", bytes.Repeat([]byte{2, 0}, 50)),
	}}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key", Streaming: true}, gen, zaptest.NewLogger(t))

	fragments, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if len(fragments) != 2 {
		t.Fatalf("Expected 2 fragments, got %d", len(fragments))
	}
	if len(fragments[0]) != 200 || len(fragments[1]) != 100 {
		t.Errorf("Unexpected fragment sizes %d and %d", len(fragments[0]), len(fragments[1]))
	}
	if gen.model != defaultGeminiTTSModel {
		t.Errorf("Expected model %s, got %s", defaultGeminiTTSModel, gen.model)
	}
	voice := gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName
	if voice != "Kore" {
		t.Errorf("Expected default voice Kore, got %s", voice)
	}
	if len(gen.config.ResponseModalities) != 1 || gen.config.ResponseModalities[0] != "AUDIO" {
		t.Errorf("Expected AUDIO response modality, got %v", gen.config.ResponseModalities)
	}
}

func TestGeminiTTS_Speak_Buffered(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
		audioResponse("audio/L16;rate=24000", make([]byte, 4800)),
	}}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key"}, gen, zaptest.NewLogger(t))

	fragments, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam", VoiceID: "Puck"}))
	if err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if len(fragments) != 1 || len(fragments[0]) != 4800 {
		t.Errorf("Expected one 4800-byte fragment, got %d fragments", len(fragments))
	}
	if voice := gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; voice != "Puck" {
		t.Errorf("Expected requested voice Puck, got %s", voice)
	}
}

func TestGeminiTTS_Speak_CallBudget(t *testing.T) {
	tests := []struct {
		name       string
		config     GeminiTTSConfig
		wantAbove  time.Duration
		wantAtMost time.Duration
	}{
		{
			name:       "buffered defaults to 30s",
			config:     GeminiTTSConfig{APIKey: "test-key"},
			wantAbove:  29 * time.Second,
			wantAtMost: 30 * time.Second,
		},
		{
			name:       "streamed defaults to 60s",
			config:     GeminiTTSConfig{APIKey: "test-key", Streaming: true},
			wantAbove:  59 * time.Second,
			wantAtMost: 60 * time.Second,
		},
		{
			name:       "configured timeout wins",
			config:     GeminiTTSConfig{APIKey: "test-key", Timeout: 5 * time.Second},
			wantAbove:  4 * time.Second,
			wantAtMost: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
				audioResponse("audio/L16;rate=24000", make([]byte, 2)),
			}}
			g := newGeminiTTS(tt.config, gen, zaptest.NewLogger(t))

			if _, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"})); err != nil {
				t.Fatalf("Speak() error = %v", err)
			}
			if gen.budget <= tt.wantAbove || gen.budget > tt.wantAtMost {
				t.Errorf("Expected call budget in (%s, %s], got %s", tt.wantAbove, tt.wantAtMost, gen.budget)
			}
		})
	}
}

func TestGeminiTTS_Speak_TruncatesBeforeCall(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
		audioResponse("audio/L16;rate=24000", make([]byte, 2)),
	}}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key"}, gen, zaptest.NewLogger(t))

	text := strings.Repeat("س", 500)
	if _, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: text})); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("Expected one upstream call, got %d", gen.calls)
	}
	if n := utf8.RuneCountInString(gen.text); n != 300 {
		t.Errorf("Expected 300 characters sent upstream, got %d", n)
	}
}

func TestGeminiTTS_Speak_MimeMismatch(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
			audioResponse("audio/mpeg", make([]byte, 4800)),
		}}
		g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key", Streaming: streaming}, gen, zaptest.NewLogger(t))

		fragments, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
		if !domain.IsKind(err, domain.ErrMimeMismatch) {
			t.Errorf("streaming=%v: expected mime_mismatch, got %v", streaming, err)
		}
		if len(fragments) != 0 {
			t.Errorf("streaming=%v: expected zero fragments, got %d", streaming, len(fragments))
		}
	}
}

func TestGeminiTTS_Speak_ConfiguredMIMETypes(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
		audioResponse("audio/L16;rate=24000", make([]byte, 8)),
	}}
	g := newGeminiTTS(GeminiTTSConfig{
		APIKey:            "test-key",
		AcceptedMIMETypes: []string{"audio/pcm;rate=24000"},
	}, gen, zaptest.NewLogger(t))

	_, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if !domain.IsKind(err, domain.ErrMimeMismatch) {
		t.Errorf("Expected mime_mismatch outside the configured allow-list, got %v", err)
	}
}

func TestGeminiTTS_Speak_Misaligned(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{
		audioResponse("audio/L16;rate=24000", make([]byte, 7)),
	}}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key"}, gen, zaptest.NewLogger(t))

	_, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Errorf("Expected malformed_response for an odd-length payload, got %v", err)
	}
}

func TestGeminiTTS_Speak_SafetyBlocked(t *testing.T) {
	gen := &fakeAudioGenerator{responses: []*genai.GenerateContentResponse{{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	}}}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key"}, gen, zaptest.NewLogger(t))

	_, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if !domain.IsKind(err, domain.ErrSafetyBlocked) {
		t.Errorf("Expected safety_blocked, got %v", err)
	}
}

func TestGeminiTTS_Speak_UpstreamError(t *testing.T) {
	gen := &fakeAudioGenerator{
		responses: []*genai.GenerateContentResponse{audioResponse("audio/L16;rate=24000", make([]byte, 4))},
		err:       genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
	}
	g := newGeminiTTS(GeminiTTSConfig{APIKey: "test-key", Streaming: true}, gen, zaptest.NewLogger(t))

	fragments, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if len(fragments) != 1 {
		t.Errorf("Expected the fragment before the failure, got %d", len(fragments))
	}
	pe, ok := err.(*domain.ProviderError)
	if !ok || !pe.RateLimited() {
		t.Errorf("Expected rate-limited upstream_rejected, got %v", err)
	}
}

func TestGeminiTTS_Disabled(t *testing.T) {
	gen := &fakeAudioGenerator{}
	g := newGeminiTTS(GeminiTTSConfig{}, gen, zaptest.NewLogger(t))

	fragments, err := collect(g.Speak(context.Background(), domain.SpeechRequest{Text: "Salam"}))
	if !domain.IsKind(err, domain.ErrSetupMissing) {
		t.Errorf("Expected setup_missing, got %v", err)
	}
	if len(fragments) != 0 || gen.calls != 0 {
		t.Errorf("Expected no fragments and no upstream calls, got %d fragments and %d calls", len(fragments), gen.calls)
	}
	if g.Describe().Configured {
		t.Error("Expected an unconfigured adapter")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "shorter", text: "hello", max: 300, want: "hello"},
		{name: "exact", text: "abc", max: 3, want: "abc"},
		{name: "ascii", text: "abcdef", max: 4, want: "abcd"},
		{name: "multi-byte", text: "سلام دنیا", max: 4, want: "سلام"},
		{name: "no cap", text: "abc", max: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.max); got != tt.want {
				t.Errorf("Truncate() = %q, want %q", got, tt.want)
			}
		})
	}
}
