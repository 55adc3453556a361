package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/observe"
)

// Sampling parameters per task.
var (
	replyTemperature     float32 = 0.7
	replyTopP            float32 = 0.9
	summarizeTemperature float32 = 0.3
)

// ReplyResult is the outcome of a chat or summarize request. When Refused is
// true, Text holds an explanatory notice instead of an answer.
type ReplyResult struct {
	Text    string
	Refused bool
	Refusal *domain.Refusal
}

// Reply answers a single user message with the fixed system prompt.
func (g *Gateway) Reply(ctx context.Context, userMessage string) (ReplyResult, error) {
	return g.complete(ctx, OpReply, g.chat, userMessage, func(text string) domain.CompletionRequest {
		topP := replyTopP
		return domain.CompletionRequest{
			Text:         text,
			SystemPrompt: g.replySystemPrompt,
			Temperature:  replyTemperature,
			TopP:         &topP,
		}
	})
}

// Summarize produces a short summary of text.
func (g *Gateway) Summarize(ctx context.Context, text string) (ReplyResult, error) {
	return g.complete(ctx, OpSummarize, g.summarize, text, func(text string) domain.CompletionRequest {
		return domain.CompletionRequest{
			Text:        g.summarizeInstruction + "\n\n" + text,
			Temperature: summarizeTemperature,
		}
	})
}

func (g *Gateway) complete(
	ctx context.Context,
	operation string,
	completer repositories.TextCompleter,
	text string,
	build func(string) domain.CompletionRequest,
) (ReplyResult, error) {
	t := g.track(ctx, operation, completer.Describe().Provider)

	if err := g.validateText(text); err != nil {
		return ReplyResult{}, t.fail(err)
	}
	if err := completer.Setup(); err != nil {
		return ReplyResult{}, t.fail(err)
	}
	t.advance(StateValidated)

	t.advance(StateDispatched)
	result, err := completer.Complete(ctx, build(text))
	if err != nil {
		return ReplyResult{}, t.fail(err)
	}

	if result.Refused() {
		t.complete(observe.OutcomeRefused, zap.String("reason", result.Refusal.Reason))
		return ReplyResult{Text: RefusalNotice, Refused: true, Refusal: result.Refusal}, nil
	}

	t.complete(observe.OutcomeSuccess, zap.Int("responseLength", len(result.Text)))
	return ReplyResult{Text: result.Text}, nil
}

func (g *Gateway) validateText(text string) error {
	if err := requireText(text); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(text); n > g.maxInputChars {
		return domain.NewInvalidRequest(fmt.Sprintf("text is %d characters, the limit is %d", n, g.maxInputChars))
	}
	return nil
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.NewInvalidRequest("text must not be empty")
	}
	return nil
}
