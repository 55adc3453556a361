package llm

import (
	"context"
	"sync"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
)

// Mock is a scripted TextCompleter that records every request it receives.
type Mock struct {
	Name     string
	Model    string
	Result   domain.CompletionResult
	Err      error
	SetupErr error

	mu    sync.Mutex
	calls []domain.CompletionRequest
}

var _ repositories.TextCompleter = (*Mock)(nil)

// NewMock returns a Mock that answers every request with text.
func NewMock(text string) *Mock {
	return &Mock{Name: "mock", Model: "mock-model", Result: domain.CompletionResult{Text: text}}
}

// Complete implements repositories.TextCompleter.
func (m *Mock) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.CompletionResult{}, domain.NewTimeout(m.Name, err)
	}
	if m.Err != nil {
		return domain.CompletionResult{}, m.Err
	}
	return m.Result, nil
}

// Setup implements repositories.TextCompleter.
func (m *Mock) Setup() error {
	return m.SetupErr
}

// Describe implements repositories.TextCompleter.
func (m *Mock) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: m.Name, Model: m.Model, Configured: m.SetupErr == nil}
}

// Calls returns a copy of the requests received so far.
func (m *Mock) Calls() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CompletionRequest(nil), m.calls...)
}
