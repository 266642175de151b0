package reddit

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// RateLimitError is returned once every retry of a 429 response has been used up.
type RateLimitError struct {
	Path     string
	Attempts int
	Reset    time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("reddit rate limit exceeded for %s after %d attempts (reset in %s)", e.Path, e.Attempts, e.Reset)
}

// NetworkError wraps transport failures and server errors that outlived the retry budget.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("reddit request %s failed: %s", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reddit request %s returned status %d", e.Path, e.StatusCode)
}
