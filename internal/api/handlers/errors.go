package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a standardized API error response. It includes an HTTP
// status code and a user-facing message; validation failures additionally
// carry per-field messages in Errors.
type APIError struct {
	Code    int      `json:"-"`
	Message string   `json:"error"`
	Errors  []string `json:"errors,omitempty"`
}

// Error implements the error interface.
func (e APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.Errors)
	}
	return e.Message
}

// StatusCode returns the HTTP status code for this error.
func (e APIError) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// WithMessage returns a copy of the error with a different message.
func (e APIError) WithMessage(message string) APIError {
	return APIError{Code: e.Code, Message: message, Errors: e.Errors}
}

// Common API errors - use these for consistent error responses
var (
	ErrBadRequest = APIError{
		Code:    http.StatusBadRequest,
		Message: "Bad request",
	}
	ErrInvalidJSON = APIError{
		Code:    http.StatusBadRequest,
		Message: "Invalid JSON in request body",
	}
	ErrUnknownProvider = APIError{
		Code:    http.StatusNotFound,
		Message: "Unknown import provider",
	}

	ErrUnauthorized = APIError{
		Code:    http.StatusUnauthorized,
		Message: "Authentication required",
	}
	// ErrInvalidOrExpiredRequest covers a failed OAuth handshake and rejected
	// provider credentials alike; the client restarts the provider flow.
	ErrInvalidOrExpiredRequest = APIError{
		Code:    http.StatusUnauthorized,
		Message: "Access denied to your account",
	}
	ErrProviderNotConfigured = APIError{
		Code:    http.StatusUnauthorized,
		Message: "Provider is not configured for this session",
	}

	ErrForbidden = APIError{
		Code:    http.StatusForbidden,
		Message: "Access denied",
	}

	ErrNotFound = APIError{
		Code:    http.StatusNotFound,
		Message: "Resource not found",
	}

	ErrConflict = APIError{
		Code:    http.StatusConflict,
		Message: "Resource already exists",
	}

	ErrValidationFailed = APIError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
	}

	ErrProviderUnreachable = APIError{
		Code:    http.StatusBadGateway,
		Message: "The import source is not reachable, try again later",
	}

	ErrInternal = APIError{
		Code:    http.StatusInternalServerError,
		Message: "An internal error occurred",
	}
)

// WriteError writes an APIError to the response writer.
func WriteError(w http.ResponseWriter, err APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode())
	_ = json.NewEncoder(w).Encode(err)
}

// WriteErrorFromErr writes an error to the response writer. If the error is an
// APIError, it uses its status code; otherwise it returns a 500.
func WriteErrorFromErr(w http.ResponseWriter, err error) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr)
		return
	}
	WriteError(w, ErrInternal)
}

// NewValidationError creates a 422 response carrying the messages.
func NewValidationError(messages ...string) APIError {
	return APIError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  messages,
	}
}

// NewNotFoundError creates a not found error for a specific resource.
func NewNotFoundError(resource, identifier string) APIError {
	return APIError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// NewConflictError creates a conflict error with a specific message.
func NewConflictError(message string) APIError {
	return APIError{
		Code:    http.StatusConflict,
		Message: message,
	}
}
