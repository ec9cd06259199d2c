package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/dentdir"
)

// SearchFunc is the signature for a search function.
type SearchFunc func(ctx context.Context, query string) ([]*dentdir.Clinic, error)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// WaitFunc is called before each retry with the attempt just failed, the
// wait about to be applied and the failure.
type WaitFunc func(attempt int, wait time.Duration, err error)

// Default retry settings.
const (
	DefaultMaxAttempts    = 3
	DefaultRateLimitDelay = 5 * time.Second
	DefaultTransientDelay = 1 * time.Second
	DefaultQueryDelay     = 2 * time.Second
)

// RetryPolicy controls SearchWithRetry.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls per query, first call included.
	MaxAttempts int

	// RateLimitDelay is the base backoff after a quota failure.
	RateLimitDelay time.Duration

	// TransientDelay is the base backoff after any other retryable failure.
	TransientDelay time.Duration

	Sleep  SleepFunc
	OnWait WaitFunc
}

// DefaultRetryPolicy returns the production retry settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		RateLimitDelay: DefaultRateLimitDelay,
		TransientDelay: DefaultTransientDelay,
	}
}

// Backoff returns the wait after the given failed attempt: base * attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SearchWithRetry calls search until it succeeds or the policy's attempts
// are exhausted, waiting an increasing interval between attempts. Quota
// failures back off from RateLimitDelay, other failures from
// TransientDelay. Each wait is longer than the one before, even when the
// failure kind changes between attempts. ECONFIG failures and context cancellation are returned
// immediately. After the last attempt the last failure is returned.
func SearchWithRetry(ctx context.Context, query string, search SearchFunc, policy RetryPolicy) ([]*dentdir.Clinic, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	var prev time.Duration
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		clinics, err := search(ctx, query)
		if err == nil {
			return clinics, nil
		}
		lastErr = err

		if !Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		base := policy.TransientDelay
		if dentdir.ErrorCode(err) == dentdir.ERATELIMIT {
			base = policy.RateLimitDelay
		}
		wait := Backoff(base, attempt)
		if wait <= prev {
			wait = prev + base
		}
		prev = wait
		if policy.OnWait != nil {
			policy.OnWait(attempt, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Retryable reports whether a search failure may succeed on another
// attempt. Configuration errors and cancellation are final.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return dentdir.ErrorCode(err) != dentdir.ECONFIG
}
