package restive

import (
	"errors"
	"fmt"
	"maps"

	"github.com/broady/restive/internal/meta"
)

// ErrorCode represents a machine-readable build error code.
type ErrorCode string

const (
	CodeNotAnInterface                 ErrorCode = "not_an_interface"
	CodeMissingRoutingMetadata         ErrorCode = "missing_routing_metadata"
	CodeDuplicatePathParameter         ErrorCode = "duplicate_path_parameter"
	CodePathParameterMismatch          ErrorCode = "path_parameter_mismatch"
	CodeMultipleBodyParameters         ErrorCode = "multiple_body_parameters"
	CodeMultipleCancellationParameters ErrorCode = "multiple_cancellation_parameters"
	CodeUnsupportedReturnShape         ErrorCode = "unsupported_return_shape"
	CodeMalformedMetadata              ErrorCode = "malformed_metadata"
	CodeImplementationCreationFailed   ErrorCode = "implementation_creation_failed"
)

// Error is returned when a service struct cannot be turned into a client.
// All build errors are detected by New before any call is made.
type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Method  string
	Details map[string]any

	cause error
}

func (e *Error) Error() string {
	switch {
	case e.Service != "" && e.Method != "":
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Service, e.Method, e.Message)
	case e.Service != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Service, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a new build error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new build error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	maps.Copy(merged, e.Details)
	maps.Copy(merged, details)
	out := *e
	out.Details = merged
	return &out
}

// codeOf maps a metadata error to its build error code.
func codeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, meta.ErrMissingRoute):
		return CodeMissingRoutingMetadata
	case errors.Is(err, meta.ErrDuplicatePathParameter):
		return CodeDuplicatePathParameter
	case errors.Is(err, meta.ErrPathParameterMismatch):
		return CodePathParameterMismatch
	case errors.Is(err, meta.ErrMultipleBodyParameters):
		return CodeMultipleBodyParameters
	case errors.Is(err, meta.ErrMultipleCancellationParameters):
		return CodeMultipleCancellationParameters
	case errors.Is(err, meta.ErrUnsupportedReturnShape):
		return CodeUnsupportedReturnShape
	default:
		return CodeMalformedMetadata
	}
}

// buildError converts an error from metadata compilation into an *Error
// naming the service and method it came from.
func buildError(service, method string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	out := &Error{
		Code:    codeOf(err),
		Message: err.Error(),
		Service: service,
		Method:  method,
		cause:   err,
	}
	var mismatch *meta.PathMismatchError
	if errors.As(err, &mismatch) {
		out = out.WithDetails(map[string]any{
			"unbound": mismatch.Unbound,
			"unused":  mismatch.Unused,
		})
	}
	return out
}
