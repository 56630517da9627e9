package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A second request for the same symbol inside the minimum interval is
// delayed by at least the remainder, never dropped.
func TestSnapshotLimiter_DelaysSecondRequest(t *testing.T) {
	l := NewSnapshotLimiter(SnapshotLimiterConfig{
		MinInterval:  50 * time.Millisecond,
		WeightBudget: 1000,
		WeightWindow: time.Minute,
	})

	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSnapshotLimiter_SymbolsAreIndependent(t *testing.T) {
	l := NewSnapshotLimiter(SnapshotLimiterConfig{
		MinInterval:  time.Minute,
		WeightBudget: 1000,
		WeightWindow: time.Minute,
	})

	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "eth_usdt", 1))
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

// Exhausting the weight budget defers requests to the next window.
func TestSnapshotLimiter_WeightBudget(t *testing.T) {
	l := NewSnapshotLimiter(SnapshotLimiterConfig{
		MinInterval:  time.Millisecond,
		WeightBudget: 10,
		WeightWindow: 60 * time.Millisecond,
	})

	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 10))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "eth_usdt", 10))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestSnapshotLimiter_AcquireHonorsContext(t *testing.T) {
	l := NewSnapshotLimiter(SnapshotLimiterConfig{
		MinInterval:  time.Hour,
		WeightBudget: 1000,
		WeightWindow: time.Minute,
	})

	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "btc_usdt", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Consecutive failures stretch the per-symbol interval, a success
// restores it.
func TestSnapshotLimiter_FailureStreakStretchesInterval(t *testing.T) {
	l := NewSnapshotLimiter(SnapshotLimiterConfig{
		MinInterval:  10 * time.Millisecond,
		WeightBudget: 1000,
		WeightWindow: time.Minute,
	})

	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))
	l.ReportResult("btc_usdt", false)
	l.ReportResult("btc_usdt", false)

	// Interval is now 4x the base.
	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	l.ReportResult("btc_usdt", true)

	start = time.Now()
	time.Sleep(12 * time.Millisecond)
	require.NoError(t, l.Acquire(context.Background(), "btc_usdt", 1))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}
