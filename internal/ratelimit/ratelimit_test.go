package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunary/analytics/internal/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.NewWithOutput(logger.ERROR, io.Discard)
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, 3, time.Minute, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "user_1"), "request %d within limit", i+1)
	}
	assert.False(t, l.Allow(ctx, "user_1"), "request over limit")

	// Other identities have their own bucket.
	assert.True(t, l.Allow(ctx, "user_2"))
}

func TestLimiter_WindowResets(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	at := time.Date(2026, 2, 16, 10, 0, 30, 0, time.UTC)
	l := New(client, 1, time.Minute, quietLogger())
	l.now = func() time.Time { return at }

	ctx := context.Background()
	assert.True(t, l.Allow(ctx, "user_1"))
	assert.False(t, l.Allow(ctx, "user_1"))

	// Next window, fresh bucket.
	at = at.Add(time.Minute)
	assert.True(t, l.Allow(ctx, "user_1"))
}

func TestLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close() // simulate an outage

	l := New(client, 1, time.Minute, quietLogger())
	assert.True(t, l.Allow(context.Background(), "user_1"))
	assert.True(t, l.Allow(context.Background(), "user_1"))
}

func TestLimiter_NilClientDisables(t *testing.T) {
	l := New(nil, 1, time.Minute, quietLogger())
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(context.Background(), "user_1"))
	}
}
