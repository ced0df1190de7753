package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrEmailNotVerified = errors.New("email address not verified")
	ErrAlreadyVerified  = errors.New("email address already verified")
	ErrTooManyRequests  = errors.New("too many requests")
	ErrInvalidToken     = errors.New("invalid or expired token")

	// External collaborators
	ErrUpstream           = errors.New("upstream service failure")
	ErrServiceUnavailable = errors.New("service not configured")
)

// ValidationError reports malformed input. It is answered with a rejection
// and never causes a state change.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given message
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
