package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind categorizes every failure an adapter or the gateway can report.
type ErrorKind string

const (
	// ErrSetupMissing means the adapter has no credentials; no network call was made.
	ErrSetupMissing ErrorKind = "setup_missing"
	// ErrTimeout means the upstream did not answer within the call budget.
	ErrTimeout ErrorKind = "timeout"
	// ErrUpstreamRejected means the upstream answered with a non-success status.
	ErrUpstreamRejected ErrorKind = "upstream_rejected"
	// ErrMalformedResponse means the upstream answer did not have the expected shape.
	ErrMalformedResponse ErrorKind = "malformed_response"
	// ErrMimeMismatch means an audio payload was not in an accepted encoding.
	ErrMimeMismatch ErrorKind = "mime_mismatch"
	// ErrSafetyBlocked means the upstream refused for content-policy reasons.
	ErrSafetyBlocked ErrorKind = "safety_blocked"
	// ErrInvalidRequest means the caller's input was rejected before dispatch.
	ErrInvalidRequest ErrorKind = "invalid_request"
)

// ProviderError is the canonical error returned across the adapter boundary.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	// Status is the upstream HTTP status for ErrUpstreamRejected, 0 otherwise.
	Status int
	// Detail is a short human-readable explanation: a body excerpt, the
	// offending MIME type, or what was missing from the response.
	Detail string
	Err    error
}

func (e *ProviderError) Error() string {
	msg := string(e.Kind)
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the upstream rejected the call with 429.
func (e *ProviderError) RateLimited() bool {
	return e.Kind == ErrUpstreamRejected && e.Status == http.StatusTooManyRequests
}

// NewSetupMissing reports an adapter constructed without credentials.
func NewSetupMissing(provider, detail string) *ProviderError {
	return &ProviderError{Kind: ErrSetupMissing, Provider: provider, Detail: detail}
}

// NewTimeout reports an upstream call that exceeded its budget.
func NewTimeout(provider string, err error) *ProviderError {
	return &ProviderError{Kind: ErrTimeout, Provider: provider, Detail: "upstream call exceeded its time budget", Err: err}
}

// NewUpstreamRejected reports a non-success upstream status.
func NewUpstreamRejected(provider string, status int, excerpt string, err error) *ProviderError {
	return &ProviderError{Kind: ErrUpstreamRejected, Provider: provider, Status: status, Detail: excerpt, Err: err}
}

// NewMalformedResponse reports an upstream answer with an unexpected shape.
func NewMalformedResponse(provider, detail string) *ProviderError {
	return &ProviderError{Kind: ErrMalformedResponse, Provider: provider, Detail: detail}
}

// NewMimeMismatch reports an audio payload whose media type is not accepted.
func NewMimeMismatch(provider, got string) *ProviderError {
	return &ProviderError{Kind: ErrMimeMismatch, Provider: provider, Detail: fmt.Sprintf("unexpected audio media type %q", got)}
}

// NewSafetyBlocked reports a content-policy refusal on a path that has no
// textual result to carry a Refusal.
func NewSafetyBlocked(provider string, refusal Refusal) *ProviderError {
	detail := refusal.Reason
	if refusal.Message != "" {
		detail += ": " + refusal.Message
	}
	return &ProviderError{Kind: ErrSafetyBlocked, Provider: provider, Detail: detail}
}

// NewInvalidRequest reports caller input rejected before dispatch.
func NewInvalidRequest(detail string) *ProviderError {
	return &ProviderError{Kind: ErrInvalidRequest, Detail: detail}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a
// ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
