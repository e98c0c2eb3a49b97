package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())
	t.Cleanup(func() { _ = rl.Close() })

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:webhook:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:webhook:1.2.3.4", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:webhook:1.2.3.4", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	// Separate senders count separately.
	ok, _, _ = rl.Allow(ctx, "rl:webhook:5.6.7.8", 2, time.Minute)
	require.True(t, ok)
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())
	t.Cleanup(func() { _ = rl.Close() })

	ctx := context.Background()
	_, _, err := rl.Allow(ctx, "rl:webhook:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, n, err := rl.Allow(ctx, "rl:webhook:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}
