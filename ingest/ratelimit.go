package ingest

import (
	"context"

	"golang.org/x/time/rate"
)

// CallLimiter caps the number of backend calls per minute using a token
// bucket. Retries count as calls.
type CallLimiter struct {
	limiter *rate.Limiter
}

// NewCallLimiter creates a CallLimiter allowing perMinute calls per minute
// with no bursting. Zero or negative values disable the limit.
func NewCallLimiter(perMinute int) *CallLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &CallLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the limit allows another call.
// Returns an error if the context is canceled before the wait completes.
func (l *CallLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
