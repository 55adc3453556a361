package usecase

import (
	"context"
	"io"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/internal/audio"
	"github.com/satriahrh/voxgate/internal/observe"
)

const outcomeAborted = "aborted"

// SynthesizeSpeech voices req and returns the whole utterance as one WAV.
func (g *Gateway) SynthesizeSpeech(ctx context.Context, req domain.SpeechRequest) ([]byte, error) {
	t, req, err := g.prepareSpeech(ctx, req)
	if err != nil {
		return nil, err
	}

	var pcm []byte
	for fragment, err := range g.speech.Speak(ctx, req) {
		if err != nil {
			return nil, t.fail(err)
		}
		pcm = append(pcm, fragment...)
	}
	if len(pcm) == 0 {
		return nil, t.fail(domain.NewMalformedResponse(t.provider, "upstream returned no audio"))
	}

	g.metrics.RecordSpeechChunk(ctx, t.provider, len(pcm))
	t.complete(observe.OutcomeSuccess, zap.Int("bytes", len(pcm)))
	return audio.Mux(g.speech.Format(), pcm), nil
}

// OpenSpeech starts a streamed synthesis of req. The first chunk is pulled
// before OpenSpeech returns, so a returned stream has been accepted by the
// upstream and an error is reported here instead of mid-stream. The caller
// must Close the stream on every path.
func (g *Gateway) OpenSpeech(ctx context.Context, req domain.SpeechRequest) (*SpeechStream, error) {
	t, req, err := g.prepareSpeech(ctx, req)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(audio.Emit(g.speech.Format(), g.speech.Speak(ctx, req)))

	first, err, ok := next()
	if !ok {
		stop()
		return nil, t.fail(domain.NewMalformedResponse(t.provider, "upstream returned no audio"))
	}
	if err != nil {
		stop()
		return nil, t.fail(err)
	}

	return &SpeechStream{
		first:   first,
		next:    next,
		stop:    stop,
		tracker: t,
		metrics: g.metrics,
	}, nil
}

func (g *Gateway) prepareSpeech(ctx context.Context, req domain.SpeechRequest) (*tracker, domain.SpeechRequest, error) {
	t := g.track(ctx, OpSpeech, g.speech.Describe().Provider)

	// Long speech input is truncated by the adapter, never rejected.
	if err := requireText(req.Text); err != nil {
		return nil, req, t.fail(err)
	}
	if err := g.speech.Setup(); err != nil {
		return nil, req, t.fail(err)
	}
	if req.VoiceID == "" {
		req.VoiceID = g.defaultVoice
	}
	t.advance(StateValidated)
	t.advance(StateDispatched)
	return t, req, nil
}

// SpeechStream is a single-consumer sequence of self-contained WAV chunks.
type SpeechStream struct {
	first   []byte
	next    func() ([]byte, error, bool)
	stop    func()
	tracker *tracker
	metrics *observe.Metrics

	chunks int
	bytes  int
	done   bool
	once   sync.Once
}

// Next returns the next chunk, or io.EOF once the upstream has finished.
// Any other error is a *domain.ProviderError and ends the stream.
func (s *SpeechStream) Next() ([]byte, error) {
	if s.first != nil {
		chunk := s.first
		s.first = nil
		s.record(chunk)
		return chunk, nil
	}
	if s.done {
		return nil, io.EOF
	}

	chunk, err, ok := s.next()
	if !ok {
		s.done = true
		s.tracker.complete(observe.OutcomeSuccess, zap.Int("chunks", s.chunks), zap.Int("bytes", s.bytes))
		return nil, io.EOF
	}
	if err != nil {
		s.done = true
		return nil, s.tracker.fail(err)
	}
	s.record(chunk)
	return chunk, nil
}

// Close releases the upstream call. It is safe to call more than once.
func (s *SpeechStream) Close() error {
	s.once.Do(func() {
		s.stop()
		if !s.done {
			s.done = true
			s.tracker.complete(outcomeAborted, zap.Int("chunks", s.chunks), zap.Int("bytes", s.bytes))
		}
	})
	return nil
}

// Chunks reports how many chunks have been returned by Next.
func (s *SpeechStream) Chunks() int {
	return s.chunks
}

// Bytes reports how many PCM payload bytes have been returned by Next.
func (s *SpeechStream) Bytes() int {
	return s.bytes
}

func (s *SpeechStream) record(chunk []byte) {
	payload := len(chunk) - audio.HeaderSize
	s.chunks++
	s.bytes += payload
	s.metrics.RecordSpeechChunk(s.tracker.ctx, s.tracker.provider, payload)
}
