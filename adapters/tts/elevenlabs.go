package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/adapters/upstream"
	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/audio"
)

const (
	providerElevenLabs  = "elevenlabs"
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultChunkSize    = 1024                     // Size of body reads while streaming
	defaultOutputFormat = "pcm_24000"              // 24 kHz 16-bit mono PCM
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice used when a request names none (default: Rachel)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: Only "pcm_24000" is accepted, the container is fixed at 24 kHz
// - ChunkSize: The size of body reads while streaming (default: 1024)
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
// - MaxChars: Input cap in characters (default: 300)
// An empty APIKey builds a disabled adapter whose calls fail with SetupMissing.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
	MaxChars     int
	Timeout      time.Duration
}

// ElevenLabsTTS implements repositories.SpeechSynthesizer using the Eleven
// Labs streaming endpoint.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	maxChars     int
	timeout      time.Duration
	client       *http.Client
	setupErr     error
	logger       *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	// Validate stability is in the valid range
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	// Validate clarity is in the valid range
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}

	if config.MaxChars < 0 {
		return fmt.Errorf("max chars must be positive, got %d", config.MaxChars)
	}

	if config.OutputFormat != "" && config.OutputFormat != defaultOutputFormat {
		return fmt.Errorf("output format %q is not supported, only %s", config.OutputFormat, defaultOutputFormat)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	// Apply defaults where needed
	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	chunkSize := config.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
		logger.Info("Using default chunk size", zap.Int("chunkSize", chunkSize))
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
		logger.Info("Using default stability", zap.Float64("stability", stability))
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
		logger.Info("Using default clarity", zap.Float64("clarity", clarity))
	}

	maxChars := config.MaxChars
	if maxChars == 0 {
		maxChars = defaultMaxChars
		logger.Info("Using default max chars", zap.Int("maxChars", maxChars))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultSpeechTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	var setupErr error
	if config.APIKey == "" {
		setupErr = domain.NewSetupMissing(providerElevenLabs, "ELEVEN_LABS_API_KEY is not set")
		logger.Warn("Eleven Labs API key not set, speech is disabled")
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: defaultOutputFormat,
		chunkSize:    chunkSize,
		stability:    stability,
		clarity:      clarity,
		maxChars:     maxChars,
		timeout:      timeout,
		client:       &http.Client{},
		setupErr:     setupErr,
		logger:       logger,
	}, nil
}

// Setup implements repositories.SpeechSynthesizer.
func (e *ElevenLabsTTS) Setup() error {
	return e.setupErr
}

// Format implements repositories.SpeechSynthesizer.
func (e *ElevenLabsTTS) Format() audio.Format {
	return audio.PCM24kMono
}

// Describe implements repositories.SpeechSynthesizer.
func (e *ElevenLabsTTS) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: providerElevenLabs, Model: e.modelID, Configured: e.setupErr == nil}
}

// Speak implements repositories.SpeechSynthesizer.
func (e *ElevenLabsTTS) Speak(ctx context.Context, req domain.SpeechRequest) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if e.setupErr != nil {
			yield(nil, e.setupErr)
			return
		}

		voiceID := req.VoiceID
		if voiceID == "" {
			voiceID = e.voiceID
		}

		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		httpReq, err := e.newRequest(ctx, Truncate(req.Text, e.maxChars), voiceID)
		if err != nil {
			yield(nil, err)
			return
		}

		e.logger.Debug("Sending request to Eleven Labs API", zap.String("url", httpReq.URL.String()))

		resp, err := e.client.Do(httpReq)
		if err != nil {
			err = upstream.Classify(providerElevenLabs, err)
			e.logger.Error("Failed to execute HTTP request", zap.Error(err))
			yield(nil, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2*upstream.ExcerptLimit))
			e.logger.Error("Eleven Labs API returned error",
				zap.Int("statusCode", resp.StatusCode),
				zap.String("response", string(errorBody)))
			yield(nil, upstream.FromHTTPStatus(providerElevenLabs, resp.StatusCode, errorBody))
			return
		}

		e.streamBody(resp.Body, yield)
	}
}

func (e *ElevenLabsTTS) newRequest(ctx context.Context, text, voiceID string) (*http.Request, error) {
	payload := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, url.PathEscape(voiceID), e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "audio/pcm")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)
	return httpReq, nil
}

// streamBody yields the body as frame-aligned fragments. A partial frame at
// the end of one read is carried into the next.
func (e *ElevenLabsTTS) streamBody(body io.Reader, yield func([]byte, error) bool) {
	frame := e.Format().BlockAlign()
	buffer := make([]byte, e.chunkSize)
	var carry []byte
	totalBytes, chunkCount := 0, 0

	for {
		n, err := body.Read(buffer)
		if n > 0 {
			fragment := make([]byte, 0, len(carry)+n)
			fragment = append(fragment, carry...)
			fragment = append(fragment, buffer[:n]...)

			whole := len(fragment) - len(fragment)%frame
			carry = append(carry[:0], fragment[whole:]...)

			if whole > 0 {
				totalBytes += whole
				chunkCount++
				if !yield(fragment[:whole], nil) {
					return
				}
			}
		}

		if err == io.EOF {
			if len(carry) > 0 {
				e.logger.Warn("Dropping trailing partial frame", zap.Int("bytes", len(carry)))
			}
			e.logger.Info("Finished streaming audio data",
				zap.Int("totalChunks", chunkCount),
				zap.Int("totalBytes", totalBytes))
			return
		}
		if err != nil {
			err = upstream.Classify(providerElevenLabs, err)
			e.logger.Error("Error reading response body", zap.Error(err))
			yield(nil, err)
			return
		}
	}
}
