package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/adapters/upstream"
	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
)

const (
	defaultOpenAIProvider = "openai"
	finishContentFilter   = "content_filter"
)

// OpenAIConfig holds configuration for any chat-completions compatible
// endpoint (OpenAI itself, GapGPT and other relays).
// An empty APIKey builds a disabled adapter whose calls fail with SetupMissing.
type OpenAIConfig struct {
	Provider string // Optional: label used in errors and metrics, defaults to "openai"
	APIKey   string
	BaseURL  string // Optional: e.g. https://api.gapgpt.app/v1
	Model    string // Required
	Timeout  time.Duration
}

// OpenAICompatible implements repositories.TextCompleter over the
// chat-completions API.
type OpenAICompatible struct {
	client   oai.Client
	provider string
	model    string
	timeout  time.Duration
	setupErr error
	logger   *zap.Logger
}

var _ repositories.TextCompleter = (*OpenAICompatible)(nil)

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.Model == "" {
		return fmt.Errorf("model is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewOpenAICompatible creates a new chat-completions adapter
func NewOpenAICompatible(config OpenAIConfig, logger *zap.Logger) (*OpenAICompatible, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	provider := config.Provider
	if provider == "" {
		provider = defaultOpenAIProvider
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		logger.Info("Using default timeout", zap.String("provider", provider), zap.Duration("timeout", timeout))
	}

	o := &OpenAICompatible{
		provider: provider,
		model:    config.Model,
		timeout:  timeout,
		logger:   logger,
	}

	if config.APIKey == "" {
		o.setupErr = domain.NewSetupMissing(provider, "API key is not set")
		logger.Warn("API key not set, completions are disabled", zap.String("provider", provider))
		return o, nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	o.client = oai.NewClient(opts...)

	return o, nil
}

// Setup implements repositories.TextCompleter.
func (o *OpenAICompatible) Setup() error {
	return o.setupErr
}

// Describe implements repositories.TextCompleter.
func (o *OpenAICompatible) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: o.provider, Model: o.model, Configured: o.setupErr == nil}
}

// Complete implements repositories.TextCompleter.
func (o *OpenAICompatible) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	if o.setupErr != nil {
		return domain.CompletionResult{}, o.setupErr
	}

	var messages []oai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, oai.UserMessage(req.Text))

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.model),
		Messages:    messages,
		Temperature: param.NewOpt(float64(req.Temperature)),
	}
	if req.TopP != nil {
		params.TopP = param.NewOpt(float64(*req.TopP))
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxOutputTokens))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	o.logger.Debug("Sending chat completion",
		zap.String("provider", o.provider),
		zap.String("model", o.model),
		zap.Int("textLength", len(req.Text)))

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = upstream.Classify(o.provider, err)
		o.logger.Error("Chat completion failed", zap.String("provider", o.provider), zap.Error(err))
		return domain.CompletionResult{}, err
	}

	if len(resp.Choices) == 0 {
		return domain.CompletionResult{}, domain.NewMalformedResponse(o.provider, "response has no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == finishContentFilter || choice.Message.Refusal != "" {
		o.logger.Info("Chat completion refused", zap.String("provider", o.provider), zap.String("finishReason", choice.FinishReason))
		return domain.CompletionResult{Refusal: &domain.Refusal{
			Reason:  finishContentFilter,
			Message: strings.TrimSpace(choice.Message.Refusal),
		}}, nil
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return domain.CompletionResult{}, domain.NewMalformedResponse(o.provider, "first choice has no content")
	}

	return domain.CompletionResult{Text: text}, nil
}
