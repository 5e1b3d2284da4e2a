package locker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb)
	ctx := context.Background()

	first, err := l.Obtain(ctx, "report:abc", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "report:abc", time.Minute)
	require.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, first.Release(ctx))

	again, err := l.Obtain(ctx, "report:abc", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLockerExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewRedisLocker(rdb)
	ctx := context.Background()

	_, err := l.Obtain(ctx, "k", 2*time.Second)
	require.NoError(t, err)

	mr.FastForward(3 * time.Second)

	_, err = l.Obtain(ctx, "k", 2*time.Second)
	require.NoError(t, err)
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	lock, err := l.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "k", time.Minute)
	require.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, lock.Release(ctx))
	_, err = l.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err)
}
