package repositories

import (
	"context"

	"github.com/satriahrh/voxgate/domain"
)

// TextCompleter abstracts any chat/LLM provider that answers a single prompt.
type TextCompleter interface {
	// Complete sends one request upstream and returns the first completion's
	// text, trimmed. A content-policy refusal is returned as a result with a
	// non-nil Refusal, never as an error. Every error is a *domain.ProviderError.
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error)
	// Setup returns a SetupMissing error when the adapter was built without
	// credentials. It never touches the network.
	Setup() error
	// Describe reports which provider and model back this adapter.
	Describe() domain.ProviderInfo
}
