package tts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrUnavailable is returned when no synthesis engine is reachable.
	ErrUnavailable = errors.New("tts: synthesis unavailable")

	// ErrNoBinary is returned when the speech command is not configured.
	ErrNoBinary = errors.New("tts: speech command required")
)

// BackendError wraps an error with backend context.
type BackendError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with backend context.
func WrapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}
