package errors

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noggin-kb/noggin/internal/regex"
)

// ProviderErrorKind classifies a failed backend query.
type ProviderErrorKind int

const (
	KindRequestFailed ProviderErrorKind = iota
	KindInvalidResponse
	KindRateLimitExceeded
	KindAuthenticationFailed
	KindModelUnavailable
)

func (k ProviderErrorKind) String() string {
	switch k {
	case KindRequestFailed:
		return "request failed"
	case KindInvalidResponse:
		return "invalid response"
	case KindRateLimitExceeded:
		return "rate limit exceeded"
	case KindAuthenticationFailed:
		return "authentication failed"
	case KindModelUnavailable:
		return "model unavailable"
	default:
		panic(fmt.Sprintf("unknown provider error kind %d", int(k)))
	}
}

// ProviderError is the typed failure every backend returns from Query.
type ProviderError struct {
	Kind       ProviderErrorKind
	Backend    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Backend, e.Kind)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind != KindAuthenticationFailed
}

func NewProviderError(kind ProviderErrorKind, backend string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Backend: backend, Err: err}
}

// ClassifyStatus maps an HTTP status code from a provider SDK to a kind.
// ok is false for codes that carry no classification (2xx, unknown).
func ClassifyStatus(status int) (kind ProviderErrorKind, ok bool) {
	switch {
	case status == 401 || status == 403:
		return KindAuthenticationFailed, true
	case status == 429:
		return KindRateLimitExceeded, true
	case status == 502 || status == 503 || status == 504:
		return KindModelUnavailable, true
	case status >= 400:
		return KindRequestFailed, true
	default:
		return KindRequestFailed, false
	}
}

// ClassifyMessage classifies a provider failure from its text, for errors
// that did not come with a status code.
func ClassifyMessage(backend string, err error) *ProviderError {
	msg := strings.ToLower(err.Error())
	pe := &ProviderError{Kind: KindRequestFailed, Backend: backend, Err: err}

	switch {
	case strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "resource exhausted"):
		pe.Kind = KindRateLimitExceeded
		pe.RetryAfter = ParseRetryAfter(err.Error())
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "api key"):
		pe.Kind = KindAuthenticationFailed
	case strings.Contains(msg, "503") || strings.Contains(msg, "unavailable"):
		pe.Kind = KindModelUnavailable
	}

	return pe
}

// ParseRetryAfter extracts a "retry after N" hint in seconds, or zero.
func ParseRetryAfter(text string) time.Duration {
	m := regex.RetryAfter.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// FromStatus builds a ProviderError for an SDK error that carried an HTTP
// status. retryAfter is the raw Retry-After header, in seconds. Statuses
// that say nothing fall back to the error text.
func FromStatus(backend string, status int, retryAfter string, err error) *ProviderError {
	kind, ok := ClassifyStatus(status)
	if !ok {
		return ClassifyMessage(backend, err)
	}

	pe := NewProviderError(kind, backend, err)
	if kind == KindRateLimitExceeded {
		if secs, convErr := strconv.Atoi(strings.TrimSpace(retryAfter)); convErr == nil && secs > 0 {
			pe.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return pe
}
