package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/uistream/runtime/agent/model"
)

// errorBody is the JSON error document returned by the API, both as an HTTP
// response body and as a streamed error event.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// wrapError classifies err as a model.ProviderError. Context errors are
// returned unchanged so callers can tell cancellation from provider failures.
func wrapError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var (
		status int
		raw    string
	)
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		raw = apiErr.RawJSON()
	} else if i := strings.Index(err.Error(), "{"); i >= 0 {
		raw = err.Error()[i:]
	}
	var body errorBody
	_ = json.Unmarshal([]byte(raw), &body)

	kind := model.KindForHTTPStatus(status)
	if status == 0 {
		kind = kindForErrorType(body.Error.Type)
	}
	retryable := kind == model.ProviderErrorKindRateLimited || kind == model.ProviderErrorKindUnavailable
	msg := body.Error.Message
	if msg == "" {
		msg = err.Error()
	}
	return model.NewProviderError(providerName, operation, status, kind, msg, retryable, err)
}

func kindForErrorType(t string) model.ProviderErrorKind {
	switch t {
	case "authentication_error", "permission_error":
		return model.ProviderErrorKindAuth
	case "rate_limit_error":
		return model.ProviderErrorKindRateLimited
	case "overloaded_error", "api_error":
		return model.ProviderErrorKindUnavailable
	case "invalid_request_error", "not_found_error", "request_too_large":
		return model.ProviderErrorKindInvalidRequest
	default:
		return model.ProviderErrorKindUnknown
	}
}
