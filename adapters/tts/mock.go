package tts

import (
	"context"
	"iter"
	"sync"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/audio"
)

// Mock is a scripted SpeechSynthesizer. Speak yields Fragments in order and
// then Err, if set. Every request is recorded after truncation to MaxChars.
type Mock struct {
	Fragments [][]byte
	Err       error
	SetupErr  error
	MaxChars  int

	mu       sync.Mutex
	calls    []domain.SpeechRequest
	yielded  int
	finished bool
}

var _ repositories.SpeechSynthesizer = (*Mock)(nil)

// NewMock returns a Mock yielding the given fragments.
func NewMock(fragments ...[]byte) *Mock {
	return &Mock{Fragments: fragments, MaxChars: defaultMaxChars}
}

// Speak implements repositories.SpeechSynthesizer.
func (m *Mock) Speak(ctx context.Context, req domain.SpeechRequest) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer func() {
			m.mu.Lock()
			m.finished = true
			m.mu.Unlock()
		}()

		if m.SetupErr != nil {
			yield(nil, m.SetupErr)
			return
		}

		req.Text = Truncate(req.Text, m.MaxChars)
		m.mu.Lock()
		m.calls = append(m.calls, req)
		m.mu.Unlock()

		for _, f := range m.Fragments {
			if err := ctx.Err(); err != nil {
				yield(nil, domain.NewTimeout("mock", err))
				return
			}
			m.mu.Lock()
			m.yielded++
			m.mu.Unlock()
			if !yield(f, nil) {
				return
			}
		}
		if m.Err != nil {
			yield(nil, m.Err)
		}
	}
}

// Format implements repositories.SpeechSynthesizer.
func (m *Mock) Format() audio.Format {
	return audio.PCM24kMono
}

// Setup implements repositories.SpeechSynthesizer.
func (m *Mock) Setup() error {
	return m.SetupErr
}

// Describe implements repositories.SpeechSynthesizer.
func (m *Mock) Describe() domain.ProviderInfo {
	return domain.ProviderInfo{Provider: "mock", Model: "mock-tts", Configured: m.SetupErr == nil}
}

// Calls returns a copy of the requests received so far.
func (m *Mock) Calls() []domain.SpeechRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SpeechRequest(nil), m.calls...)
}

// Yielded reports how many fragments have been handed to consumers.
func (m *Mock) Yielded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.yielded
}

// Released reports whether the last Speak sequence has ended.
func (m *Mock) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}
