package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter paces actions against the external source.
type Limiter interface {
	Wait(ctx context.Context) error
}

// JitteredLimiter enforces a randomized minimum gap between actions:
// base ± jitter. The wait is cancellable, never a blind sleep.
type JitteredLimiter struct {
	base       time.Duration
	jitter     time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(base, jitter time.Duration) *JitteredLimiter {
	if jitter > base {
		jitter = base
	}
	return &JitteredLimiter{base: base, jitter: jitter}
}

func (l *JitteredLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	delay := l.nextDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *JitteredLimiter) nextDelay() time.Duration {
	if l.jitter == 0 {
		return l.base
	}
	offset := time.Duration(rand.Int63n(int64(2*l.jitter))) - l.jitter
	return l.base + offset
}
