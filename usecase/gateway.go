package usecase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/observe"
)

const (
	defaultMaxInputChars = 8000
	defaultVoice         = "Kore"

	defaultReplySystemPrompt = `You are a knowledgeable and caring assistant for university students.
Answer coursework, project, programming and study-guidance questions thoroughly and accurately, at a university level.
Always answer in Persian unless the user asks for another language.`

	defaultSummarizeInstruction = "Summarize the following text briefly:"

	// RefusalNotice is shown in place of an answer the provider declined to give.
	RefusalNotice = "The provider declined to answer this request because of its content policy."
)

// GatewayConfig holds configuration for the Gateway.
type GatewayConfig struct {
	// MaxInputChars rejects longer chat and summarize inputs before dispatch.
	// Speech inputs are exempt and truncated by the adapter to its own cap.
	MaxInputChars        int
	ReplySystemPrompt    string
	SummarizeInstruction string
	DefaultVoice         string
}

// Gateway is the single entry point for chat, summarize and speech. It
// validates each request, delegates to exactly one adapter, and never
// retries or fails over.
type Gateway struct {
	maxInputChars        int
	replySystemPrompt    string
	summarizeInstruction string
	defaultVoice         string

	chat      repositories.TextCompleter
	summarize repositories.TextCompleter
	speech    repositories.SpeechSynthesizer
	metrics   *observe.Metrics
	logger    *zap.Logger
}

// ValidateGatewayConfig validates the GatewayConfig
func ValidateGatewayConfig(config GatewayConfig) error {
	if config.MaxInputChars < 0 {
		return fmt.Errorf("max input chars must be positive, got %d", config.MaxInputChars)
	}
	return nil
}

// NewGateway creates a new Gateway over the given adapters
func NewGateway(
	config GatewayConfig,
	chat repositories.TextCompleter,
	summarize repositories.TextCompleter,
	speech repositories.SpeechSynthesizer,
	metrics *observe.Metrics,
	logger *zap.Logger,
) (*Gateway, error) {
	if err := ValidateGatewayConfig(config); err != nil {
		return nil, err
	}
	if chat == nil || summarize == nil || speech == nil {
		return nil, fmt.Errorf("chat, summarize and speech adapters are required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics are required")
	}

	maxInputChars := config.MaxInputChars
	if maxInputChars == 0 {
		maxInputChars = defaultMaxInputChars
		logger.Info("Using default max input chars", zap.Int("maxInputChars", maxInputChars))
	}

	replySystemPrompt := config.ReplySystemPrompt
	if replySystemPrompt == "" {
		replySystemPrompt = defaultReplySystemPrompt
		logger.Info("Using default reply system prompt")
	}

	summarizeInstruction := config.SummarizeInstruction
	if summarizeInstruction == "" {
		summarizeInstruction = defaultSummarizeInstruction
		logger.Info("Using default summarize instruction")
	}

	voice := config.DefaultVoice
	if voice == "" {
		voice = defaultVoice
		logger.Info("Using default voice", zap.String("voice", voice))
	}

	g := &Gateway{
		maxInputChars:        maxInputChars,
		replySystemPrompt:    replySystemPrompt,
		summarizeInstruction: summarizeInstruction,
		defaultVoice:         voice,
		chat:                 chat,
		summarize:            summarize,
		speech:               speech,
		metrics:              metrics,
		logger:               logger,
	}

	for capability, info := range g.providers() {
		logger.Info("Capability bound",
			zap.String("capability", capability),
			zap.String("provider", info.Provider),
			zap.String("model", info.Model),
			zap.Bool("configured", info.Configured))
	}

	return g, nil
}
