package convert

import "fmt"

// ErrorCode classifies conversion failures. Codes are stable and returned to
// clients as the error name.
type ErrorCode string

const (
	// CodeUnsupportedRole reports a message whose role is not user, system or
	// assistant.
	CodeUnsupportedRole ErrorCode = "unsupported_role"
	// CodeEmptyMessages reports a request with no messages.
	CodeEmptyMessages ErrorCode = "empty_messages"
	// CodeInvalidRequest reports a request body that is not a valid chat
	// request.
	CodeInvalidRequest ErrorCode = "invalid_request"
)

// ConversionError is returned when a request cannot be converted. Conversion
// either succeeds for every message or fails as a whole.
type ConversionError struct {
	Code    ErrorCode
	Message string
	// Role is the offending role for CodeUnsupportedRole.
	Role string
	// Err is the underlying decode or validation error, if any.
	Err error
}

var (
	// ErrUnsupportedRole matches conversion errors with CodeUnsupportedRole.
	ErrUnsupportedRole = &ConversionError{Code: CodeUnsupportedRole, Message: "unsupported role"}
	// ErrEmptyMessages matches conversion errors with CodeEmptyMessages.
	ErrEmptyMessages = &ConversionError{Code: CodeEmptyMessages, Message: "no messages to convert"}
	// ErrInvalidRequest matches conversion errors with CodeInvalidRequest.
	ErrInvalidRequest = &ConversionError{Code: CodeInvalidRequest, Message: "invalid chat request"}
)

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is reports whether target is a ConversionError with the same code.
func (e *ConversionError) Is(target error) bool {
	t, ok := target.(*ConversionError)
	return ok && t.Code == e.Code
}

func unsupportedRole(role string) *ConversionError {
	return &ConversionError{
		Code:    CodeUnsupportedRole,
		Message: fmt.Sprintf("unsupported message role %q", role),
		Role:    role,
	}
}

func invalidRequest(msg string, err error) *ConversionError {
	return &ConversionError{Code: CodeInvalidRequest, Message: msg, Err: err}
}
