package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/clone-service/internal/repository"
)

func TestCalculateDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second, BackoffMultiplier: 2}
	assert.Equal(t, time.Second, p.CalculateDelay(0))
	assert.Equal(t, 2*time.Second, p.CalculateDelay(1))
	assert.Equal(t, 4*time.Second, p.CalculateDelay(2))
	assert.Equal(t, 5*time.Second, p.CalculateDelay(3))

	p.Jitter = true
	for i := 0; i < 20; i++ {
		d := p.CalculateDelay(1)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()
	transient := &repository.ProviderError{Provider: "x", StatusCode: 503, Retryable: true, Err: errors.New("unavailable")}
	permanent := &repository.ProviderError{Provider: "x", StatusCode: 400, Err: errors.New("bad")}

	assert.True(t, p.ShouldRetry(transient, 0))
	assert.False(t, p.ShouldRetry(transient, 1))
	assert.False(t, p.ShouldRetry(permanent, 0))
	assert.False(t, p.ShouldRetry(errors.New("plain"), 0))
	assert.False(t, p.ShouldRetry(nil, 0))
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, BackoffMultiplier: 1}
	transient := &repository.ProviderError{Retryable: true, Err: errors.New("busy")}

	policy.OnRetry = func(error, int, time.Duration) { cancel() }
	err := Retry(ctx, policy, func() error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 1, calls)
}
