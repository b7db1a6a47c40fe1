package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	redisstorage "github.com/rryowa/authsessions/internal/storage/redis"
	"github.com/rryowa/authsessions/internal/util"
)

func newThrottleForTest(t *testing.T, limit int) (*miniredis.Miniredis, *LoginThrottle) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &util.RateLimiterConfig{Limit: limit, Interval: time.Minute, BlockTime: 10 * time.Minute}
	return m, NewLoginThrottle(redisstorage.NewAttemptStorage(client), cfg, zap.NewNop().Sugar())
}

func TestLoginThrottleBlocksAfterLimit(t *testing.T) {
	m, throttle := newThrottleForTest(t, 3)
	f := newAuthFixtureWithThrottle(t, newTokenConfigForTest(), throttle)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "secretpw", "")
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, "Alice", "secretpw", "")
	require.NoError(t, err)

	for range 3 {
		_, err = f.svc.Login(ctx, "alice", "wrong-password", testClient)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = f.svc.Login(ctx, "alice", "secretpw", testClient)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = f.svc.Login(ctx, "Alice", "secretpw", testClient)
	require.NoError(t, err, "usernames are case-sensitive, so is the throttle")

	m.FastForward(10*time.Minute + time.Second)
	_, err = f.svc.Login(ctx, "alice", "secretpw", testClient)
	require.NoError(t, err)
}

func TestLoginThrottleResetsOnSuccess(t *testing.T) {
	_, throttle := newThrottleForTest(t, 3)
	f := newAuthFixtureWithThrottle(t, newTokenConfigForTest(), throttle)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "secretpw", "")
	require.NoError(t, err)

	for range 2 {
		_, err = f.svc.Login(ctx, "alice", "wrong-password", testClient)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.svc.Login(ctx, "alice", "secretpw", testClient)
	require.NoError(t, err)

	for range 2 {
		_, err = f.svc.Login(ctx, "alice", "wrong-password", testClient)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = f.svc.Login(ctx, "alice", "secretpw", testClient)
	require.NoError(t, err)
}

func TestLoginThrottleFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &util.RateLimiterConfig{Limit: 1, Interval: time.Minute, BlockTime: time.Minute}
	throttle := NewLoginThrottle(redisstorage.NewAttemptStorage(client), cfg, zap.NewNop().Sugar())

	assert.True(t, throttle.Allow(context.Background(), "alice"))
	throttle.Failure(context.Background(), "alice")
	throttle.Success(context.Background(), "alice")
}

func TestNilLoginThrottleAllows(t *testing.T) {
	var throttle *LoginThrottle
	assert.True(t, throttle.Allow(context.Background(), "alice"))
	throttle.Failure(context.Background(), "alice")
	throttle.Success(context.Background(), "alice")
}
