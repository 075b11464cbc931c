package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitEnforcesGap(t *testing.T) {
	l := NewJitteredLimiter(30*time.Millisecond, 0)

	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestWaitCancellable(t *testing.T) {
	l := NewJitteredLimiter(time.Hour, 0)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJitterStaysInBounds(t *testing.T) {
	l := NewJitteredLimiter(100*time.Millisecond, 40*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := l.nextDelay()
		assert.GreaterOrEqual(t, d, 60*time.Millisecond)
		assert.LessOrEqual(t, d, 140*time.Millisecond)
	}
}
