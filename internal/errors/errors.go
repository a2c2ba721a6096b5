package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
	ErrNotFound        = errors.New("resource not found")
	ErrUnavailable     = errors.New("service temporarily unavailable")
	ErrInternal        = errors.New("internal server error")
)

const genericInternalMessage = "Internal server error"

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func NewValidationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

// ValidationErrors collects every failed field of a single request.
type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := ve.Messages()
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func (ve *ValidationErrors) Messages() []string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return errorMessages
}

// ErrOrNil returns nil when nothing was collected, the single error when
// exactly one was, and the collection otherwise.
func (ve *ValidationErrors) ErrOrNil() error {
	switch len(ve.Errors) {
	case 0:
		return nil
	case 1:
		return ve.Errors[0]
	default:
		return ve
	}
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}

type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

func NewConflictError(msg string) error {
	return &ConflictError{Msg: msg}
}

func IsConflictError(err error) bool {
	var conflictError *ConflictError
	return errors.As(err, &conflictError)
}

// HTTPStatus maps an error from any layer onto the response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidationErrors(err), IsValidationError(err):
		return http.StatusBadRequest
	case IsConflictError(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to the client. Anything
// outside the taxonomy is replaced with a generic message.
func PublicMessage(err error) string {
	var validationErrors *ValidationErrors
	if errors.As(err, &validationErrors) {
		return "Validation failed"
	}
	var validationError *ValidationError
	if errors.As(err, &validationError) {
		return validationError.Msg
	}
	var conflictError *ConflictError
	if errors.As(err, &conflictError) {
		return conflictError.Msg
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, ErrForbidden):
		return "Insufficient permissions"
	case errors.Is(err, ErrNotFound):
		return "Resource not found"
	case errors.Is(err, ErrUnavailable):
		return "Service temporarily unavailable"
	}
	return genericInternalMessage
}

// Details returns the per-field messages of a ValidationErrors, if any.
func Details(err error) []string {
	var validationErrors *ValidationErrors
	if errors.As(err, &validationErrors) {
		return validationErrors.Messages()
	}
	return nil
}
