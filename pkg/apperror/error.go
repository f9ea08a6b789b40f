package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches errors with the same code, so errors.Is(err, ErrNotFound) holds for
// every copy produced by WithMessage / WithDetails.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.HTTPStatus == t.HTTPStatus
}

func (e *Error) body() map[string]any {
	errBody := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		errBody["details"] = e.Details
	}
	return map[string]any{"error": errBody}
}

// ToEchoError converts the app error to an echo.HTTPError for proper handling
func (e *Error) ToEchoError() *echo.HTTPError {
	return echo.NewHTTPError(e.HTTPStatus, e.body())
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
		Details:    e.Details,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithMessagef is WithMessage with fmt formatting.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

// Common error definitions
var (
	// Conditional requests
	ErrNotModified        = New(http.StatusNotModified, "not_modified", "Not modified")
	ErrPreconditionFailed = New(http.StatusPreconditionFailed, "precondition_failed", "Precondition failed")

	// Validation errors
	ErrBadRequest                = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrInvalidID                 = New(http.StatusBadRequest, "invalid_id", "Invalid identifier")
	ErrSyntax                    = New(http.StatusBadRequest, "syntax_error", "Malformed request body")
	ErrUpdateOperationNotAllowed = New(http.StatusBadRequest, "update_operation_not_allowed", "Update operation not allowed")
	ErrQuadsNotAllowed           = New(http.StatusBadRequest, "quads_not_allowed", "Graph-qualified patterns are not allowed")
	ErrServiceNotAllowed         = New(http.StatusBadRequest, "service_not_allowed", "SERVICE clauses are not allowed")
	ErrPredicateNotAllowed       = New(http.StatusBadRequest, "predicate_not_allowed", "Predicate not allowed")
	ErrSubjectNotAllowed         = New(http.StatusBadRequest, "subject_not_allowed", "Subject not allowed")
	ErrUnsupportedMediaType      = New(http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported content type")
	ErrNotAcceptable             = New(http.StatusNotAcceptable, "not_acceptable", "No acceptable representation")

	// Authentication / authorization errors
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrForbidden    = New(http.StatusForbidden, "forbidden", "Access denied")

	// Resource errors
	ErrNotFound = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict = New(http.StatusConflict, "conflict", "Resource already exists")

	// Server errors
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrUpstream = New(http.StatusBadGateway, "upstream_error", "Graph store request failed")
)

// ToHTTPError converts an app error to an HTTP-friendly format
func ToHTTPError(err error) (int, map[string]any) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.body()
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"code":    "internal_error",
			"message": "An internal error occurred",
		},
	}
}

// NewBadRequest creates a bad request error with a custom message
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal creates an internal error with a message and optional wrapped error
func NewInternal(message string, err error) *Error {
	return &Error{
		HTTPStatus: http.StatusInternalServerError,
		Code:       "internal_error",
		Message:    message,
		Internal:   err,
	}
}

// NewForbidden creates a forbidden error with a custom message
func NewForbidden(message string) *Error {
	return ErrForbidden.WithMessage(message)
}

// NewUpstream reports a non-success response from the graph store. The store's
// response body is surfaced in the details.
func NewUpstream(status int, body string) *Error {
	return ErrUpstream.
		WithMessage(fmt.Sprintf("Graph store responded with status %d", status)).
		WithDetails(map[string]any{"status": status, "body": body})
}
