package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/voxgate/adapters/upstream"
	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
)

const (
	providerGemini     = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
	defaultTimeout     = 30 * time.Second
)

// ContentGenerator is the part of the genai Models service used by GeminiLLM.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig holds configuration for the GeminiLLM adapter.
// An empty APIKey builds a disabled adapter whose calls fail with SetupMissing.
type GeminiConfig struct {
	APIKey  string
	BaseURL string        // Optional: override of the Gemini API endpoint
	Model   string        // Optional: defaults to gemini-2.5-flash
	Timeout time.Duration // Optional: per-call budget, defaults to 30s
}

// GeminiLLM implements repositories.TextCompleter with Gemini's native
// generateContent API.
type GeminiLLM struct {
	models   ContentGenerator
	model    string
	timeout  time.Duration
	setupErr error
	logger   *zap.Logger
}

var _ repositories.TextCompleter = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	var models ContentGenerator
	if config.APIKey != "" {
		m, err := upstream.NewGenAIModels(ctx, config.APIKey, config.BaseURL)
		if err != nil {
			return nil, err
		}
		models = m
	}
	return newGeminiLLM(config, models, logger), nil
}

func newGeminiLLM(config GeminiConfig, models ContentGenerator, logger *zap.Logger) *GeminiLLM {
	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", timeout))
	}

	var setupErr error
	if config.APIKey == "" {
		setupErr = domain.NewSetupMissing(providerGemini, "GEMINI_API_KEY is not set")
		logger.Warn("Gemini API key not set, completions are disabled")
	}

	return &GeminiLLM{
		models:   models,
		model:    model,
		timeout:  timeout,
		setupErr: setupErr,
		logger:   logger,
	}
}

// Setup implements repositories.TextCompleter.
func (g *GeminiLLM) Setup() error {
	return g.setupErr
}

// Describe implements repositories.TextCompleter.
func (g *GeminiLLM) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: providerGemini, Model: g.model, Configured: g.setupErr == nil}
}

// Complete implements repositories.TextCompleter.
func (g *GeminiLLM) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	if g.setupErr != nil {
		return domain.CompletionResult{}, g.setupErr
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(*req.TopP)
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("Sending completion to Gemini",
		zap.String("model", g.model),
		zap.Int("textLength", len(req.Text)))

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(req.Text), config)
	if err != nil {
		err = upstream.Classify(providerGemini, err)
		g.logger.Error("Gemini completion failed", zap.Error(err))
		return domain.CompletionResult{}, err
	}

	if refusal := upstream.GenAIRefusal(resp); refusal != nil {
		g.logger.Info("Gemini refused the prompt", zap.String("reason", refusal.Reason))
		return domain.CompletionResult{Refusal: refusal}, nil
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return domain.CompletionResult{}, domain.NewMalformedResponse(providerGemini, "response has no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.CompletionResult{}, domain.NewMalformedResponse(providerGemini, "candidate has no text")
	}

	return domain.CompletionResult{Text: text}, nil
}
