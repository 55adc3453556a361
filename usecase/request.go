package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/voxgate/domain"
	"github.com/satriahrh/voxgate/internal/observe"
)

// RequestState is the lifecycle position of one gateway request.
type RequestState string

const (
	StateReceived   RequestState = "received"
	StateValidated  RequestState = "validated"
	StateDispatched RequestState = "dispatched"
	StateCompleted  RequestState = "completed"
	StateFailed     RequestState = "failed"
)

// Operation names used in logs and metrics.
const (
	OpReply     = "reply"
	OpSummarize = "summarize"
	OpSpeech    = "speech"
)

type requestIDKey struct{}

// WithRequestID attaches the transport's request ID to ctx so gateway logs
// can be correlated with access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID attached to ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// tracker follows one request through its states and records the outcome.
type tracker struct {
	ctx       context.Context
	operation string
	provider  string
	state     RequestState
	started   time.Time
	metrics   *observe.Metrics
	logger    *zap.Logger
}

func (g *Gateway) track(ctx context.Context, operation, provider string) *tracker {
	id := RequestIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	t := &tracker{
		ctx:       ctx,
		operation: operation,
		provider:  provider,
		state:     StateReceived,
		started:   time.Now(),
		metrics:   g.metrics,
		logger: g.logger.With(
			zap.String("requestID", id),
			zap.String("operation", operation),
			zap.String("provider", provider),
		),
	}
	t.logger.Debug("Request received")
	return t
}

func (t *tracker) advance(state RequestState) {
	t.state = state
	t.logger.Debug("Request state changed", zap.String("state", string(state)))
}

// dispatched reports whether an upstream call was attempted.
func (t *tracker) dispatched() bool {
	return t.state == StateDispatched
}

func (t *tracker) complete(outcome string, fields ...zap.Field) {
	wasDispatched := t.dispatched()
	t.advance(StateCompleted)
	elapsed := time.Since(t.started)
	if wasDispatched {
		t.metrics.RecordProviderCall(t.ctx, t.provider, t.operation, outcome, elapsed)
	}
	t.logger.Info("Request completed",
		append(fields, zap.String("outcome", outcome), zap.Duration("elapsed", elapsed))...)
}

// fail records err as the request's outcome and returns it unchanged.
func (t *tracker) fail(err error) error {
	wasDispatched := t.dispatched()
	t.advance(StateFailed)
	elapsed := time.Since(t.started)

	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	if wasDispatched {
		t.metrics.RecordProviderCall(t.ctx, t.provider, t.operation, kind, elapsed)
	}

	fields := []zap.Field{zap.String("kind", kind), zap.Duration("elapsed", elapsed), zap.Error(err)}
	switch domain.KindOf(err) {
	case domain.ErrInvalidRequest, domain.ErrSetupMissing, domain.ErrSafetyBlocked:
		t.logger.Warn("Request failed", fields...)
	default:
		t.logger.Error("Request failed", fields...)
	}
	return err
}
