package domain

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of one Allow call; ResetAt is when the
// current window ends.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter throttles credential endpoints (login, token exchange,
// registration) keyed by route and caller.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}
