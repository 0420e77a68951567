package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderErrorKind is the coarse category of a provider failure. Stream
// drivers and middlewares use it to decide whether to back off or retry.
type ProviderErrorKind string

const (
	// ProviderErrorKindAuth: credentials are missing, invalid or lack access.
	ProviderErrorKindAuth ProviderErrorKind = "auth"
	// ProviderErrorKindInvalidRequest: the provider rejected the request
	// itself; sending it again unchanged fails again.
	ProviderErrorKindInvalidRequest ProviderErrorKind = "invalid_request"
	// ProviderErrorKindRateLimited: the provider is throttling the caller.
	ProviderErrorKindRateLimited ProviderErrorKind = "rate_limited"
	// ProviderErrorKindUnavailable: overload, 5xx or transport failure.
	ProviderErrorKindUnavailable ProviderErrorKind = "unavailable"
	// ProviderErrorKindUnknown: anything else.
	ProviderErrorKindUnknown ProviderErrorKind = "unknown"
)

// ProviderError is a failure reported by the model provider behind an Agent.
// Adapters return it from Stream or Streamer.Recv. The stream driver shows
// Message to the end user; logs keep the full chain through Unwrap.
type ProviderError struct {
	provider  string
	operation string
	status    int
	kind      ProviderErrorKind
	message   string
	retryable bool
	cause     error
}

// NewProviderError returns a ProviderError. It panics when provider or kind
// is empty.
func NewProviderError(provider, operation string, httpStatus int, kind ProviderErrorKind, message string, retryable bool, cause error) *ProviderError {
	if provider == "" || kind == "" {
		panic("model: provider error requires a provider and a kind")
	}
	return &ProviderError{
		provider:  provider,
		operation: operation,
		status:    httpStatus,
		kind:      kind,
		message:   message,
		retryable: retryable,
		cause:     cause,
	}
}

// KindForHTTPStatus classifies an HTTP status returned by a provider. Zero
// means no status is known.
func KindForHTTPStatus(status int) ProviderErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ProviderErrorKindAuth
	case status == http.StatusTooManyRequests:
		return ProviderErrorKindRateLimited
	case status >= 500:
		return ProviderErrorKindUnavailable
	case status >= 400:
		return ProviderErrorKindInvalidRequest
	}
	return ProviderErrorKindUnknown
}

// AsProviderError returns the first ProviderError in err's chain, if any.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

func (e *ProviderError) Provider() string        { return e.provider }
func (e *ProviderError) Operation() string       { return e.operation }
func (e *ProviderError) HTTPStatus() int         { return e.status }
func (e *ProviderError) Kind() ProviderErrorKind { return e.kind }
func (e *ProviderError) Retryable() bool         { return e.retryable }
func (e *ProviderError) Unwrap() error           { return e.cause }

// Message is the provider's human readable description, possibly empty.
func (e *ProviderError) Message() string { return e.message }

// Error formats as "<provider> <kind> [<status> ](<operation>): <message>".
func (e *ProviderError) Error() string {
	op := e.operation
	if op == "" {
		op = "request"
	}
	msg := e.message
	switch {
	case msg != "":
	case e.cause != nil:
		msg = e.cause.Error()
	default:
		msg = "provider error"
	}
	if e.status > 0 {
		return fmt.Sprintf("%s %s %d (%s): %s", e.provider, e.kind, e.status, op, msg)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.provider, e.kind, op, msg)
}
