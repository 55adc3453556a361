// Package config defines the deployment configuration of the gateway: which
// provider backs each capability, the credentials and endpoints of every
// provider, and the speech limits of this deployment.
//
// Values come from three layers, later layers winning: built-in defaults, an
// optional YAML profile named by VOXGATE_CONFIG, and the process environment
// (after loading a .env file when one exists).
package config

import (
	"time"

	"github.com/satriahrh/voxgate/adapters/llm"
	"github.com/satriahrh/voxgate/adapters/tts"
	"github.com/satriahrh/voxgate/usecase"
)

// Provider names accepted for each capability.
const (
	ProviderGapGPT     = "gapgpt"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Speech     SpeechConfig     `yaml:"speech"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	GapGPT     GapGPTConfig     `yaml:"gapgpt"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	LogLevel        string        `yaml:"log_level"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	MaxInputChars   int           `yaml:"max_input_chars"`
}

// ProvidersConfig binds each capability to one provider.
type ProvidersConfig struct {
	Chat      string `yaml:"chat"`
	Summarize string `yaml:"summarize"`
	Speech    string `yaml:"speech"`
}

// SpeechConfig holds the per-deployment speech limits.
type SpeechConfig struct {
	MaxChars          int      `yaml:"max_chars"`
	AcceptedMIMETypes []string `yaml:"accepted_mime_types"`
	Streaming         bool     `yaml:"streaming"`
	DefaultVoice      string   `yaml:"default_voice"`
}

// GeminiConfig holds Gemini API settings shared by chat and speech.
type GeminiConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	ChatModel string `yaml:"chat_model"`
	TTSModel  string `yaml:"tts_model"`
}

// GapGPTConfig holds settings of the OpenAI-compatible relay.
type GapGPTConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ElevenLabsConfig holds Eleven Labs settings.
type ElevenLabsConfig struct {
	APIKey    string  `yaml:"api_key"`
	BaseURL   string  `yaml:"base_url"`
	VoiceID   string  `yaml:"voice_id"`
	ModelID   string  `yaml:"model_id"`
	ChunkSize int     `yaml:"chunk_size"`
	Stability float64 `yaml:"stability"`
	Clarity   float64 `yaml:"clarity"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			LogLevel:        "info",
			MetricsEnabled:  true,
			UpstreamTimeout: 30 * time.Second,
			MaxInputChars:   8000,
		},
		Providers: ProvidersConfig{
			Chat:      ProviderGapGPT,
			Summarize: ProviderGemini,
			Speech:    ProviderGemini,
		},
		Speech: SpeechConfig{
			MaxChars:          300,
			AcceptedMIMETypes: append([]string(nil), tts.DefaultAcceptedMIMETypes...),
			Streaming:         true,
			DefaultVoice:      "Kore",
		},
		Gemini: GeminiConfig{
			ChatModel: "gemini-2.5-flash",
			TTSModel:  "gemini-2.5-flash-preview-tts",
		},
		GapGPT: GapGPTConfig{
			BaseURL: "https://api.gapgpt.app/v1",
			Model:   "gemini-2.5-pro",
		},
	}
}

// GatewayConfig returns the usecase.GatewayConfig for this deployment.
func (c *Config) GatewayConfig() usecase.GatewayConfig {
	return usecase.GatewayConfig{
		MaxInputChars: c.Server.MaxInputChars,
		DefaultVoice:  c.Speech.DefaultVoice,
	}
}

// GeminiLLMConfig returns the adapter config for Gemini completions.
func (c *Config) GeminiLLMConfig() llm.GeminiConfig {
	return llm.GeminiConfig{
		APIKey:  c.Gemini.APIKey,
		BaseURL: c.Gemini.BaseURL,
		Model:   c.Gemini.ChatModel,
		Timeout: c.Server.UpstreamTimeout,
	}
}

// GapGPTLLMConfig returns the adapter config for the OpenAI-compatible relay.
func (c *Config) GapGPTLLMConfig() llm.OpenAIConfig {
	return llm.OpenAIConfig{
		Provider: ProviderGapGPT,
		APIKey:   c.GapGPT.APIKey,
		BaseURL:  c.GapGPT.BaseURL,
		Model:    c.GapGPT.Model,
		Timeout:  c.Server.UpstreamTimeout,
	}
}

// GeminiTTSConfig returns the adapter config for Gemini speech.
func (c *Config) GeminiTTSConfig() tts.GeminiTTSConfig {
	cfg := tts.GeminiTTSConfig{
		APIKey:            c.Gemini.APIKey,
		BaseURL:           c.Gemini.BaseURL,
		Model:             c.Gemini.TTSModel,
		Voice:             c.Speech.DefaultVoice,
		MaxChars:          c.Speech.MaxChars,
		AcceptedMIMETypes: c.Speech.AcceptedMIMETypes,
		Streaming:         c.Speech.Streaming,
	}
	// A buffered synthesis is one non-streaming call, bounded like the text calls.
	if !c.Speech.Streaming {
		cfg.Timeout = c.Server.UpstreamTimeout
	}
	return cfg
}

// ElevenLabsTTSConfig returns the adapter config for Eleven Labs speech.
func (c *Config) ElevenLabsTTSConfig() tts.ElevenLabsConfig {
	return tts.ElevenLabsConfig{
		APIKey:     c.ElevenLabs.APIKey,
		APIBaseURL: c.ElevenLabs.BaseURL,
		VoiceID:    c.ElevenLabs.VoiceID,
		ModelID:    c.ElevenLabs.ModelID,
		ChunkSize:  c.ElevenLabs.ChunkSize,
		Stability:  c.ElevenLabs.Stability,
		Clarity:    c.ElevenLabs.Clarity,
		MaxChars:   c.Speech.MaxChars,
	}
}
