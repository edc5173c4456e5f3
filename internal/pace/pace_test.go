package pace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepZeroIsImmediate(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
}

func TestLimiterSpacesCalls(t *testing.T) {
	lim := NewLimiter(20 * time.Millisecond)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestLimiterDisabled(t *testing.T) {
	lim := NewLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, lim.Allow())
	}
}
