// Package providers implements concrete carrier adapters for the dispatch
// layer: wire-format translators between each carrier's REST API and the
// carrier-agnostic DTOs in internal/carrier. No dispatch, selection, or
// breaker logic lives here — that is the dispatcher's job.
package providers

import (
	"context"
	"time"
)

// RetryPolicy holds shared retry configuration for HTTP-backed adapters,
// adapted from the teacher's agent/providers.BaseProvider.
type RetryPolicy struct {
	maxRetries int
	retryDelay time.Duration
}

// NewRetryPolicy creates a retry policy with sane defaults.
func NewRetryPolicy(maxRetries int, retryDelay time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 250 * time.Millisecond
	}
	return RetryPolicy{maxRetries: maxRetries, retryDelay: retryDelay}
}

// Do executes op with linear backoff while isRetryable(err) holds.
func (p RetryPolicy) Do(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}
