package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for callers and the HTTP layer.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindBusinessRule ErrorKind = "BUSINESS_RULE"
	KindInternal     ErrorKind = "INTERNAL"
)

// AppError carries a stable machine code alongside the human message.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// HTTPStatus maps the kind to its HTTP-equivalent severity class.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindBusinessRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NotFound reports a missing entity.
func NotFound(code, format string, args ...any) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a duplicate or already-processed request.
func Conflict(code, format string, args ...any) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports an ownership or role violation.
func Forbidden(code, format string, args ...any) *AppError {
	return &AppError{Kind: KindForbidden, Code: code, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule reports a domain invariant violation such as insufficient stock.
func BusinessRule(code, format string, args ...any) *AppError {
	return &AppError{Kind: KindBusinessRule, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation reports bad input shape with per-field messages.
func Validation(code, message string, fields map[string]string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message, Fields: fields}
}

// Internal wraps an unexpected failure. The message shown to users stays
// generic; the cause is for logs.
func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Code: "internal_error", Message: "unexpected internal error", cause: err}
}

// KindOf extracts the kind from any error, defaulting to INTERNAL.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
