// Package apperr implements the error taxonomy shared by every boundary in
// the system: ingestion, the store, the tool registry, the LLM adapter, and
// the HTTP surface. Kinds are stable strings so they can cross the HTTP
// boundary and be compared by callers and tests alike.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind is one of the taxonomy entries from the error handling design.
type Kind string

const (
	KindParseError       Kind = "ParseError"
	KindValidationError  Kind = "ValidationError"
	KindDataNotFound     Kind = "DataNotFound"
	KindConflictError    Kind = "ConflictError"
	KindStoreTransient   Kind = "StoreTransientError"
	KindLLMTransient     Kind = "LLMTransientError"
	KindLLMUnavailable   Kind = "LLMUnavailable"
	KindConfigurationErr Kind = "ConfigurationError"
	KindInternal         Kind = "InternalError"
)

// Error is the structured error value propagated to boundaries. It carries
// a stable Kind, a human Message, optional structured Details, and a
// correlation id minted at construction time so it survives wrapping.
type Error struct {
	Kind          Kind
	Message       string
	Details       map[string]interface{}
	CorrelationID string
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same Kind, so errors.Is
// matches two errors by kind regardless of message; callers generally
// compare with KindOf instead.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:          kind,
		Message:       fmt.Sprintf(format, args...),
		CorrelationID: uuid.NewString(),
		cause:         cause,
	}
}

func ParseError(cause error, format string, args ...interface{}) *Error {
	return newErr(KindParseError, cause, format, args...)
}

func ValidationError(format string, args ...interface{}) *Error {
	return newErr(KindValidationError, nil, format, args...)
}

func DataNotFound(format string, args ...interface{}) *Error {
	return newErr(KindDataNotFound, nil, format, args...)
}

func ConflictError(format string, args ...interface{}) *Error {
	return newErr(KindConflictError, nil, format, args...)
}

func StoreTransient(cause error, format string, args ...interface{}) *Error {
	return newErr(KindStoreTransient, cause, format, args...)
}

func LLMTransient(cause error, format string, args ...interface{}) *Error {
	return newErr(KindLLMTransient, cause, format, args...)
}

func LLMUnavailable(cause error, format string, args ...interface{}) *Error {
	return newErr(KindLLMUnavailable, cause, format, args...)
}

func ConfigurationError(format string, args ...interface{}) *Error {
	return newErr(KindConfigurationErr, nil, format, args...)
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return newErr(KindInternal, cause, format, args...)
}

// KindOf extracts the Kind from any error, defaulting to InternalError for
// errors that never went through a constructor above (third-party errors
// crossing a boundary unwrapped).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code table in the external
// interfaces section.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidationError:
		return 400
	case KindDataNotFound:
		return 404
	case KindConflictError:
		return 409
	case KindParseError:
		return 422
	case KindLLMUnavailable, KindStoreTransient:
		return 503
	default:
		return 500
	}
}
