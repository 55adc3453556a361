// Package observe provides the OpenTelemetry metric instruments of the
// gateway and the wiring that exposes them to Prometheus.
//
// Tests should build Metrics with NewMetrics over a ManualReader-backed
// provider, or over noop.NewMeterProvider when values are irrelevant.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/satriahrh/voxgate"

// Outcomes recorded on voxgate.provider.requests.
const (
	OutcomeSuccess = "success"
	OutcomeRefused = "refused"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// ProviderRequests counts upstream calls by provider, operation and
	// outcome (success, refused, or the error kind).
	ProviderRequests metric.Int64Counter

	// ProviderDuration tracks upstream call latency by provider and operation.
	// For streamed speech it covers the whole stream.
	ProviderDuration metric.Float64Histogram

	// SpeechChunks counts container chunks delivered to callers.
	SpeechChunks metric.Int64Counter

	// SpeechBytes counts PCM payload bytes delivered to callers.
	SpeechBytes metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time by method,
	// route and status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// language-model and speech latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised Metrics struct using the given
// MeterProvider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ProviderRequests, err = m.Int64Counter("voxgate.provider.requests",
		metric.WithDescription("Total upstream provider calls by provider, operation, and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("voxgate.provider.duration",
		metric.WithDescription("Latency of upstream provider calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeechChunks, err = m.Int64Counter("voxgate.speech.chunks",
		metric.WithDescription("Total WAV chunks delivered to callers."),
	); err != nil {
		return nil, err
	}
	if met.SpeechBytes, err = m.Int64Counter("voxgate.speech.bytes",
		metric.WithDescription("Total PCM payload bytes delivered to callers."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxgate.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordProviderCall records one finished upstream call.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, operation, outcome string, elapsed time.Duration) {
	base := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("outcome", outcome))...))
	m.ProviderDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(base...))
}

// RecordSpeechChunk records one chunk carrying payloadBytes of PCM.
func (m *Metrics) RecordSpeechChunk(ctx context.Context, provider string, payloadBytes int) {
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.SpeechChunks.Add(ctx, 1, attrs)
	m.SpeechBytes.Add(ctx, int64(payloadBytes), attrs)
}
