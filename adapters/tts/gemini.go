package tts

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voxgate/adapters/upstream"
	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/audio"
)

const (
	providerGemini        = "gemini"
	defaultGeminiTTSModel = "gemini-2.5-flash-preview-tts"
	defaultGeminiVoice    = "Kore"
	defaultMaxChars       = 300
	defaultSpeechTimeout  = 60 * time.Second
	defaultCallTimeout    = 30 * time.Second
)

// DefaultAcceptedMIMETypes are the spellings Gemini uses for 24 kHz
// signed 16-bit little-endian mono PCM.
var DefaultAcceptedMIMETypes = []string{
	"audio/L16;rate=24000",
	"audio/L16;codec=pcm;rate=24000",
}

// AudioGenerator is the part of the genai Models service used by GeminiTTS.
// *genai.Models satisfies it.
type AudioGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiTTSConfig holds configuration for the GeminiTTS adapter.
// An empty APIKey builds a disabled adapter whose calls fail with SetupMissing.
type GeminiTTSConfig struct {
	APIKey            string
	BaseURL           string        // Optional: override of the Gemini API endpoint
	Model             string        // Optional: defaults to gemini-2.5-flash-preview-tts
	Voice             string        // Optional: prebuilt voice used when a request names none
	MaxChars          int           // Optional: input cap in characters, defaults to 300
	AcceptedMIMETypes []string      // Optional: defaults to DefaultAcceptedMIMETypes
	Streaming         bool          // Use streamGenerateContent instead of a single response
	Timeout           time.Duration // Optional: budget for the whole synthesis, defaults to 60s streamed or 30s buffered
}

// GeminiTTS implements repositories.SpeechSynthesizer with Gemini's native
// audio output.
type GeminiTTS struct {
	models    AudioGenerator
	model     string
	voice     string
	maxChars  int
	accepted  map[string]struct{}
	streaming bool
	timeout   time.Duration
	setupErr  error
	logger    *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*GeminiTTS)(nil)

// ValidateGeminiTTSConfig validates the GeminiTTSConfig
func ValidateGeminiTTSConfig(config GeminiTTSConfig) error {
	if config.MaxChars < 0 {
		return fmt.Errorf("max chars must be positive, got %d", config.MaxChars)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	for _, m := range config.AcceptedMIMETypes {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("accepted MIME types must not contain empty entries")
		}
	}
	return nil
}

// NewGeminiTTS creates a new Gemini TTS instance
func NewGeminiTTS(ctx context.Context, config GeminiTTSConfig, logger *zap.Logger) (*GeminiTTS, error) {
	if err := ValidateGeminiTTSConfig(config); err != nil {
		return nil, err
	}

	var models AudioGenerator
	if config.APIKey != "" {
		m, err := upstream.NewGenAIModels(ctx, config.APIKey, config.BaseURL)
		if err != nil {
			return nil, err
		}
		models = m
	}
	return newGeminiTTS(config, models, logger), nil
}

func newGeminiTTS(config GeminiTTSConfig, models AudioGenerator, logger *zap.Logger) *GeminiTTS {
	model := config.Model
	if model == "" {
		model = defaultGeminiTTSModel
		logger.Info("Using default TTS model", zap.String("model", model))
	}

	voice := config.Voice
	if voice == "" {
		voice = defaultGeminiVoice
		logger.Info("Using default voice", zap.String("voice", voice))
	}

	maxChars := config.MaxChars
	if maxChars == 0 {
		maxChars = defaultMaxChars
		logger.Info("Using default max chars", zap.Int("maxChars", maxChars))
	}

	mimeTypes := config.AcceptedMIMETypes
	if len(mimeTypes) == 0 {
		mimeTypes = DefaultAcceptedMIMETypes
		logger.Info("Using default accepted MIME types", zap.Strings("mimeTypes", mimeTypes))
	}
	accepted := make(map[string]struct{}, len(mimeTypes))
	for _, m := range mimeTypes {
		accepted[normalizeMIME(m)] = struct{}{}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultCallTimeout
		if config.Streaming {
			timeout = defaultSpeechTimeout
		}
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	var setupErr error
	if config.APIKey == "" {
		setupErr = domain.NewSetupMissing(providerGemini, "GEMINI_API_KEY is not set")
		logger.Warn("Gemini API key not set, speech is disabled")
	}

	return &GeminiTTS{
		models:    models,
		model:     model,
		voice:     voice,
		maxChars:  maxChars,
		accepted:  accepted,
		streaming: config.Streaming,
		timeout:   timeout,
		setupErr:  setupErr,
		logger:    logger,
	}
}

// Setup implements repositories.SpeechSynthesizer.
func (g *GeminiTTS) Setup() error {
	return g.setupErr
}

// Format implements repositories.SpeechSynthesizer.
func (g *GeminiTTS) Format() audio.Format {
	return audio.PCM24kMono
}

// Describe implements repositories.SpeechSynthesizer.
func (g *GeminiTTS) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: providerGemini, Model: g.model, Configured: g.setupErr == nil}
}

// Speak implements repositories.SpeechSynthesizer.
func (g *GeminiTTS) Speak(ctx context.Context, req domain.SpeechRequest) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if g.setupErr != nil {
			yield(nil, g.setupErr)
			return
		}

		text := Truncate(req.Text, g.maxChars)
		voice := req.VoiceID
		if voice == "" {
			voice = g.voice
		}

		config := &genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		}

		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		g.logger.Info("Converting text to speech",
			zap.String("model", g.model),
			zap.String("voice", voice),
			zap.Bool("streaming", g.streaming),
			zap.Int("chars", len([]rune(text))))

		contents := genai.Text(text)
		if !g.streaming {
			resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
			if err != nil {
				yield(nil, g.fail(err))
				return
			}
			g.yieldAudio(resp, yield)
			return
		}

		for resp, err := range g.models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				yield(nil, g.fail(err))
				return
			}
			if !g.yieldAudio(resp, yield) {
				return
			}
		}
	}
}

// yieldAudio yields every inline audio part of resp. It returns false when
// the sequence must stop, either because the consumer stopped or because
// an error was yielded.
func (g *GeminiTTS) yieldAudio(resp *genai.GenerateContentResponse, yield func([]byte, error) bool) bool {
	if refusal := upstream.GenAIRefusal(resp); refusal != nil {
		g.logger.Info("Gemini refused to synthesize", zap.String("reason", refusal.Reason))
		yield(nil, domain.NewSafetyBlocked(providerGemini, *refusal))
		return false
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return true
	}

	frame := g.Format()
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		blob := part.InlineData
		if _, ok := g.accepted[normalizeMIME(blob.MIMEType)]; !ok {
			g.logger.Error("Unexpected audio media type", zap.String("mimeType", blob.MIMEType))
			yield(nil, domain.NewMimeMismatch(providerGemini, blob.MIMEType))
			return false
		}
		if !frame.Aligned(len(blob.Data)) {
			yield(nil, domain.NewMalformedResponse(providerGemini,
				fmt.Sprintf("audio payload of %d bytes is not a whole number of %d-byte frames", len(blob.Data), frame.BlockAlign())))
			return false
		}
		if !yield(blob.Data, nil) {
			return false
		}
	}
	return true
}

func (g *GeminiTTS) fail(err error) error {
	err = upstream.Classify(providerGemini, err)
	g.logger.Error("Gemini speech request failed", zap.Error(err))
	return err
}

func normalizeMIME(m string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m), " ", ""))
}
