// Package ratelimit provides fixed-window request limiters for the
// credential endpoints, where unthrottled guessing is the main abuse
// vector. The memory limiter is per-process; the redis limiter shares
// one budget across replicas.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"ohmage/internal/domain"
)

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*countedWindow
	maxKeys int
}

type countedWindow struct {
	count int
	endAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		windows: make(map[string]*countedWindow),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.windows[key]
	if ok && now.After(current.endAt) {
		delete(m.windows, key)
		ok = false
	}
	if !ok {
		if len(m.windows) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.windows) >= m.maxKeys {
			return domain.RateLimitDecision{}, errors.New("rate limiter capacity exceeded")
		}
		current = &countedWindow{endAt: now.Add(window)}
		m.windows[key] = current
	}

	if current.count < limit {
		current.count++
		return domain.RateLimitDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - current.count,
			ResetAt:   current.endAt,
		}, nil
	}

	return domain.RateLimitDecision{
		Allowed:   false,
		Limit:     limit,
		Remaining: 0,
		ResetAt:   current.endAt,
	}, nil
}

func (m *memoryLimiter) gc(now time.Time) {
	for key, window := range m.windows {
		if now.After(window.endAt) {
			delete(m.windows, key)
		}
	}
}
