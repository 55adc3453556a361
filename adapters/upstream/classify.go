// Package upstream maps raw transport and SDK failures from provider calls
// onto the canonical domain.ProviderError taxonomy, so that no adapter lets
// an uncategorized error escape.
package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	oai "github.com/openai/openai-go"
	"google.golang.org/genai"

	"github.com/satriahrh/voxgate/domain"
)

// ExcerptLimit caps how much of an upstream error body is carried in Detail.
const ExcerptLimit = 512

// Excerpt returns body trimmed and cut to at most ExcerptLimit bytes without
// splitting a UTF-8 sequence.
func Excerpt(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= ExcerptLimit {
		return body
	}
	cut := ExcerptLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "…"
}

// FromHTTPStatus builds the error for a non-success upstream response.
func FromHTTPStatus(provider string, status int, body []byte) *domain.ProviderError {
	excerpt := Excerpt(string(body))
	if excerpt == "" {
		excerpt = http.StatusText(status)
	}
	return domain.NewUpstreamRejected(provider, status, excerpt, nil)
}

// Classify maps err from an upstream call to a *domain.ProviderError.
// Errors that are already canonical pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTimeout(provider, err)
	}
	if errors.Is(err, context.Canceled) {
		// The caller went away; the budget for this request is over.
		return &domain.ProviderError{Kind: domain.ErrTimeout, Provider: provider, Detail: "request cancelled", Err: err}
	}

	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return fromGenAI(provider, gerr, err)
	}
	var gerrp *genai.APIError
	if errors.As(err, &gerrp) && gerrp != nil {
		return fromGenAI(provider, *gerrp, err)
	}

	var oerr *oai.Error
	if errors.As(err, &oerr) && oerr != nil {
		msg := oerr.Message
		if msg == "" {
			msg = http.StatusText(oerr.StatusCode)
		}
		return domain.NewUpstreamRejected(provider, oerr.StatusCode, Excerpt(msg), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewTimeout(provider, err)
	}

	// Transport failures without any upstream status (refused connection,
	// reset stream, TLS failure).
	return domain.NewUpstreamRejected(provider, 0, Excerpt(err.Error()), err)
}

func fromGenAI(provider string, gerr genai.APIError, cause error) *domain.ProviderError {
	msg := gerr.Message
	if gerr.Status != "" {
		msg = gerr.Status + ": " + msg
	}
	if gerr.Code == http.StatusGatewayTimeout {
		return domain.NewTimeout(provider, cause)
	}
	return domain.NewUpstreamRejected(provider, gerr.Code, Excerpt(msg), cause)
}
