package repository

import (
	"errors"
	"fmt"
)

var (
	ErrScrapeFailed       = errors.New("page could not be scraped")
	ErrExecTimeout        = errors.New("sandbox command timed out")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrNoFilesGenerated   = errors.New("no files generated")
	ErrNotFound           = errors.New("not found")
	ErrCloneInFlight      = errors.New("a clone of this URL is already running")
	ErrInvalidURL         = errors.New("invalid URL")
)

// ProviderError is a failed model call.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the call may succeed if repeated.
func (e *ProviderError) IsRetryable() bool { return e.Retryable }

// RetryableStatus reports whether an HTTP status from a model API is transient.
func RetryableStatus(code int) bool {
	return code == 429 || code == 408 || code >= 500
}
