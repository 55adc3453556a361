package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProfileEnv names the environment variable holding the YAML profile path.
const ProfileEnv = "VOXGATE_CONFIG"

var (
	validLogLevels       = []string{"debug", "info", "warn", "error"}
	validTextProviders   = []string{ProviderGapGPT, ProviderGemini}
	validSpeechProviders = []string{ProviderGemini, ProviderElevenLabs}
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads .env (when present), the optional YAML profile named by
// VOXGATE_CONFIG and the process environment, and returns a validated Config.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()
	return LoadFrom(os.Getenv(ProfileEnv), os.LookupEnv)
}

// LoadFrom builds a Config from defaults, the YAML profile at profilePath
// (skipped when empty) and the variables visible through lookup.
func LoadFrom(profilePath string, lookup LookupFunc) (*Config, error) {
	cfg := Defaults()

	if profilePath != "" {
		f, err := os.Open(profilePath)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", profilePath, err)
		}
		defer f.Close()
		if err := decodeProfile(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", profilePath, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeProfile overlays the YAML document in r onto cfg. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func decodeProfile(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	str("PORT", &cfg.Server.Port)
	str("LOG_LEVEL", &cfg.Server.LogLevel)
	boolean("METRICS_ENABLED", &cfg.Server.MetricsEnabled)
	duration("UPSTREAM_TIMEOUT", &cfg.Server.UpstreamTimeout)
	num("MAX_INPUT_CHARS", &cfg.Server.MaxInputChars)

	str("CHAT_PROVIDER", &cfg.Providers.Chat)
	str("SUMMARIZE_PROVIDER", &cfg.Providers.Summarize)
	str("SPEECH_PROVIDER", &cfg.Providers.Speech)

	num("TTS_MAX_CHARS", &cfg.Speech.MaxChars)
	boolean("TTS_STREAMING", &cfg.Speech.Streaming)
	str("TTS_DEFAULT_VOICE", &cfg.Speech.DefaultVoice)
	if v, ok := lookup("TTS_ACCEPTED_MIME_TYPES"); ok && v != "" {
		cfg.Speech.AcceptedMIMETypes = splitList(v)
	}

	str("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	str("GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	str("GEMINI_CHAT_MODEL", &cfg.Gemini.ChatModel)
	str("GEMINI_TTS_MODEL", &cfg.Gemini.TTSModel)

	str("GAPGPT_API_KEY", &cfg.GapGPT.APIKey)
	str("GAPGPT_BASE_URL", &cfg.GapGPT.BaseURL)
	str("GAPGPT_MODEL", &cfg.GapGPT.Model)

	str("ELEVEN_LABS_API_KEY", &cfg.ElevenLabs.APIKey)
	str("ELEVEN_LABS_API_BASE_URL", &cfg.ElevenLabs.BaseURL)
	str("ELEVEN_LABS_VOICE_ID", &cfg.ElevenLabs.VoiceID)
	str("ELEVEN_LABS_MODEL_ID", &cfg.ElevenLabs.ModelID)
	num("ELEVEN_LABS_CHUNK_SIZE", &cfg.ElevenLabs.ChunkSize)
	float("ELEVEN_LABS_STABILITY", &cfg.ElevenLabs.Stability)
	float("ELEVEN_LABS_CLARITY", &cfg.ElevenLabs.Clarity)

	return errors.Join(errs...)
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %q is not a valid port", cfg.Server.Port))
	}
	if !slices.Contains(validLogLevels, cfg.Server.LogLevel) {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: %s", cfg.Server.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if cfg.Server.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.upstream_timeout must be positive, got %s", cfg.Server.UpstreamTimeout))
	}
	if cfg.Server.MaxInputChars <= 0 {
		errs = append(errs, fmt.Errorf("server.max_input_chars must be positive, got %d", cfg.Server.MaxInputChars))
	}

	if !slices.Contains(validTextProviders, cfg.Providers.Chat) {
		errs = append(errs, fmt.Errorf("providers.chat %q is invalid; valid values: %s", cfg.Providers.Chat, strings.Join(validTextProviders, ", ")))
	}
	if !slices.Contains(validTextProviders, cfg.Providers.Summarize) {
		errs = append(errs, fmt.Errorf("providers.summarize %q is invalid; valid values: %s", cfg.Providers.Summarize, strings.Join(validTextProviders, ", ")))
	}
	if !slices.Contains(validSpeechProviders, cfg.Providers.Speech) {
		errs = append(errs, fmt.Errorf("providers.speech %q is invalid; valid values: %s", cfg.Providers.Speech, strings.Join(validSpeechProviders, ", ")))
	}

	if cfg.Speech.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("speech.max_chars must be positive, got %d", cfg.Speech.MaxChars))
	}
	if len(cfg.Speech.AcceptedMIMETypes) == 0 {
		errs = append(errs, fmt.Errorf("speech.accepted_mime_types must list at least one media type"))
	}
	for i, m := range cfg.Speech.AcceptedMIMETypes {
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "audio/") {
			errs = append(errs, fmt.Errorf("speech.accepted_mime_types[%d] %q is not an audio media type", i, m))
		}
	}

	if cfg.GapGPT.Model == "" && (cfg.Providers.Chat == ProviderGapGPT || cfg.Providers.Summarize == ProviderGapGPT) {
		errs = append(errs, fmt.Errorf("gapgpt.model is required when gapgpt backs a capability"))
	}
	if s := cfg.ElevenLabs.Stability; s < 0 || s > 1 {
		errs = append(errs, fmt.Errorf("elevenlabs.stability %.2f is out of range [0, 1]", s))
	}
	if c := cfg.ElevenLabs.Clarity; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("elevenlabs.clarity %.2f is out of range [0, 1]", c))
	}

	return errors.Join(errs...)
}
