package repositories

import (
	"context"
	"iter"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/internal/audio"
)

// SpeechSynthesizer abstracts text-to-speech providers that produce raw PCM.
type SpeechSynthesizer interface {
	// Speak truncates req.Text to the provider's cap and returns the upstream
	// audio as a lazy sequence of PCM fragments, each aligned to Format's
	// frame size. The upstream call is issued when iteration starts and is
	// released when iteration ends, whichever way it ends. Errors yielded by
	// the sequence are *domain.ProviderError values and end the sequence.
	Speak(ctx context.Context, req domain.SpeechRequest) iter.Seq2[[]byte, error]
	// Format is the PCM layout of the fragments produced by Speak.
	Format() audio.Format
	// Setup returns a SetupMissing error when the adapter was built without
	// credentials. It never touches the network.
	Setup() error
	// Describe reports which provider and model back this adapter.
	Describe() domain.ProviderInfo
}
