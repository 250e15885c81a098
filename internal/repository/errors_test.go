package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("agent 1: %w", &ProviderError{Provider: "openrouter", StatusCode: 503, Retryable: true, Err: cause})

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.True(t, pe.IsRetryable())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "status 503")
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(429))
	assert.True(t, RetryableStatus(502))
	assert.False(t, RetryableStatus(400))
	assert.False(t, RetryableStatus(401))
}
