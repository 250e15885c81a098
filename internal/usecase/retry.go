package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures retries of model calls.
type RetryPolicy struct {
	// MaxRetries does not count the initial call.
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool
	// OnRetry is called before each retry with the zero-based attempt number.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy retries a transient failure once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        1,
		BaseDelay:         2 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// CalculateDelay returns the exponential backoff for attempt, capped at
// MaxDelay. With Jitter the delay is drawn uniformly from [0, backoff].
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	delay := time.Duration(d)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether err is transient and attempts remain. Only
// errors implementing IsRetryable() somewhere in their chain are retried.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// Retry runs fn until it succeeds, fails permanently, or ctx is done.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}
		delay := policy.CalculateDelay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}
		if sleep(ctx, delay) != nil {
			return err
		}
	}
}
