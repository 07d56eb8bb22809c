package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), s
}

func TestRedis_Acquire(t *testing.T) {
	l, s := newLocker(t)
	ctx := context.Background()

	require.NoError(t, l.Ping(ctx))

	release, err := l.Acquire(ctx, "run", time.Minute)
	require.NoError(t, err)
	assert.True(t, s.Exists("run"))

	_, err = l.Acquire(ctx, "run", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, release(ctx))
	assert.False(t, s.Exists("run"))

	release, err = l.Acquire(ctx, "run", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedis_ExpiredLockCanBeTaken(t *testing.T) {
	l, s := newLocker(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "run", time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	release, err := l.Acquire(ctx, "run", time.Minute)
	require.NoError(t, err)

	// the stale holder must not free the new lock
	require.NoError(t, stale(ctx))
	assert.True(t, s.Exists("run"))

	require.NoError(t, release(ctx))
	assert.False(t, s.Exists("run"))
}

func TestRedis_Unavailable(t *testing.T) {
	l, s := newLocker(t)
	s.Close()

	_, err := l.Acquire(context.Background(), "run", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestNoop(t *testing.T) {
	release, err := Noop{}.Acquire(context.Background(), "run", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
