package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/satriahrh/voxgate/internal/config"
)

func env(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxgate.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFrom("", env(nil))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Providers.Chat != config.ProviderGapGPT {
		t.Errorf("Expected chat provider gapgpt, got %s", cfg.Providers.Chat)
	}
	if cfg.Providers.Summarize != config.ProviderGemini {
		t.Errorf("Expected summarize provider gemini, got %s", cfg.Providers.Summarize)
	}
	if cfg.GapGPT.BaseURL != "https://api.gapgpt.app/v1" {
		t.Errorf("Expected gapgpt base URL default, got %s", cfg.GapGPT.BaseURL)
	}
	if cfg.Speech.MaxChars != 300 {
		t.Errorf("Expected speech max chars 300, got %d", cfg.Speech.MaxChars)
	}
	if len(cfg.Speech.AcceptedMIMETypes) != 2 {
		t.Errorf("Expected 2 accepted MIME types, got %v", cfg.Speech.AcceptedMIMETypes)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("Expected no Gemini key by default, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFrom("", env(map[string]string{
		"GEMINI_API_KEY":          "g-key",
		"GAPGPT_API_KEY":          "o-key",
		"GAPGPT_MODEL":            "gpt-4o-mini",
		"SPEECH_PROVIDER":         "elevenlabs",
		"TTS_MAX_CHARS":           "400",
		"TTS_STREAMING":           "false",
		"TTS_ACCEPTED_MIME_TYPES": "audio/L16;rate=24000, audio/pcm ,",
		"UPSTREAM_TIMEOUT":        "5s",
		"PORT":                    "9090",
		"LOG_LEVEL":               "debug",
		"ELEVEN_LABS_STABILITY":   "0.4",
	}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Gemini.APIKey != "g-key" {
		t.Errorf("Expected Gemini key g-key, got %s", cfg.Gemini.APIKey)
	}
	if cfg.Providers.Speech != config.ProviderElevenLabs {
		t.Errorf("Expected speech provider elevenlabs, got %s", cfg.Providers.Speech)
	}
	if cfg.Speech.Streaming {
		t.Error("Expected streaming to be disabled")
	}
	want := []string{"audio/L16;rate=24000", "audio/pcm"}
	if strings.Join(cfg.Speech.AcceptedMIMETypes, "|") != strings.Join(want, "|") {
		t.Errorf("Expected MIME types %v, got %v", want, cfg.Speech.AcceptedMIMETypes)
	}
	if cfg.Server.UpstreamTimeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", cfg.Server.UpstreamTimeout)
	}

	openai := cfg.GapGPTLLMConfig()
	if openai.Model != "gpt-4o-mini" || openai.APIKey != "o-key" || openai.Timeout != 5*time.Second {
		t.Errorf("Unexpected relay config: %+v", openai)
	}
	eleven := cfg.ElevenLabsTTSConfig()
	if eleven.MaxChars != 400 || eleven.Stability != 0.4 {
		t.Errorf("Unexpected Eleven Labs config: %+v", eleven)
	}
	gemini := cfg.GeminiTTSConfig()
	if gemini.Streaming || gemini.MaxChars != 400 || gemini.Voice != "Kore" {
		t.Errorf("Unexpected Gemini speech config: %+v", gemini)
	}
	if gemini.Timeout != 5*time.Second {
		t.Errorf("Expected buffered Gemini speech to use the upstream timeout 5s, got %s", gemini.Timeout)
	}
}

func TestLoadFrom_ProfileThenEnv(t *testing.T) {
	t.Parallel()
	path := writeProfile(t, `
server:
  port: "7000"
  upstream_timeout: 12s
providers:
  chat: gemini
speech:
  max_chars: 350
gemini:
  chat_model: gemini-2.5-pro
`)
	cfg, err := config.LoadFrom(path, env(map[string]string{"PORT": "7100"}))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Server.Port != "7100" {
		t.Errorf("Expected environment to win with port 7100, got %s", cfg.Server.Port)
	}
	if cfg.Server.UpstreamTimeout != 12*time.Second {
		t.Errorf("Expected timeout 12s from profile, got %s", cfg.Server.UpstreamTimeout)
	}
	if cfg.Providers.Chat != config.ProviderGemini {
		t.Errorf("Expected chat provider gemini, got %s", cfg.Providers.Chat)
	}
	if got := cfg.GeminiLLMConfig().Model; got != "gemini-2.5-pro" {
		t.Errorf("Expected chat model gemini-2.5-pro, got %s", got)
	}
	if cfg.Speech.MaxChars != 350 {
		t.Errorf("Expected max chars 350, got %d", cfg.Speech.MaxChars)
	}
	// Untouched keys keep their defaults.
	if cfg.Providers.Summarize != config.ProviderGemini {
		t.Errorf("Expected summarize default gemini, got %s", cfg.Providers.Summarize)
	}
}

func TestLoadFrom_ProfileErrors(t *testing.T) {
	t.Parallel()

	if _, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), env(nil)); err == nil {
		t.Error("Expected error for missing profile, got nil")
	}

	path := writeProfile(t, "server:\n  prot: \"8080\"\n")
	_, err := config.LoadFrom(path, env(nil))
	if err == nil {
		t.Fatal("Expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "prot") {
		t.Errorf("Expected error to name the unknown key, got %v", err)
	}
}

func TestLoadFrom_EmptyProfile(t *testing.T) {
	t.Parallel()
	path := writeProfile(t, "")
	cfg, err := config.LoadFrom(path, env(nil))
	if err != nil {
		t.Fatalf("Expected no error for empty profile, got %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port, got %s", cfg.Server.Port)
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "non numeric max chars",
			vars:    map[string]string{"TTS_MAX_CHARS": "many"},
			wantErr: "TTS_MAX_CHARS",
		},
		{
			name:    "bad duration",
			vars:    map[string]string{"UPSTREAM_TIMEOUT": "soon"},
			wantErr: "UPSTREAM_TIMEOUT",
		},
		{
			name:    "bad boolean",
			vars:    map[string]string{"TTS_STREAMING": "sometimes"},
			wantErr: "TTS_STREAMING",
		},
		{
			name:    "unknown chat provider",
			vars:    map[string]string{"CHAT_PROVIDER": "anthropic"},
			wantErr: "providers.chat",
		},
		{
			name:    "elevenlabs cannot summarize",
			vars:    map[string]string{"SUMMARIZE_PROVIDER": "elevenlabs"},
			wantErr: "providers.summarize",
		},
		{
			name:    "unknown speech provider",
			vars:    map[string]string{"SPEECH_PROVIDER": "gapgpt"},
			wantErr: "providers.speech",
		},
		{
			name:    "port out of range",
			vars:    map[string]string{"PORT": "70000"},
			wantErr: "server.port",
		},
		{
			name:    "log level",
			vars:    map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: "server.log_level",
		},
		{
			name:    "zero max chars",
			vars:    map[string]string{"TTS_MAX_CHARS": "0"},
			wantErr: "speech.max_chars",
		},
		{
			name:    "non audio MIME type",
			vars:    map[string]string{"TTS_ACCEPTED_MIME_TYPES": "text/plain"},
			wantErr: "not an audio media type",
		},
		{
			name:    "stability out of range",
			vars:    map[string]string{"ELEVEN_LABS_STABILITY": "1.5"},
			wantErr: "elevenlabs.stability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFrom("", env(tt.vars))
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Server.Port = "abc"
	cfg.Speech.MaxChars = -1

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	for _, want := range []string{"server.port", "speech.max_chars"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}
