package upstream

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/satriahrh/voxgate/domain"
)

// NewGenAIModels builds a Gemini API client and returns its Models service.
// An empty baseURL keeps the SDK default endpoint.
func NewGenAIModels(ctx context.Context, apiKey, baseURL string) (*genai.Models, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client.Models, nil
}

// GenAIRefusal reports the content-policy refusal carried by resp, if any:
// a prompt-level block reason, or a safety-class finish reason on the first
// candidate.
func GenAIRefusal(resp *genai.GenerateContentResponse) *domain.Refusal {
	if resp == nil {
		return nil
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" && pf.BlockReason != "BLOCKED_REASON_UNSPECIFIED" {
		return &domain.Refusal{Reason: string(pf.BlockReason), Message: pf.BlockReasonMessage}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	c := resp.Candidates[0]
	switch c.FinishReason {
	case genai.FinishReasonSafety,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist,
		genai.FinishReasonSPII:
		return &domain.Refusal{Reason: string(c.FinishReason), Message: c.FinishMessage}
	}
	return nil
}
