package lock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) *Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "billflow:lock:")
}

func TestWithLockExcludesSecondHolder(t *testing.T) {
	locker := newLocker(t)
	ctx := context.Background()

	err := locker.WithLock(ctx, "reconcile", time.Minute, func(ctx context.Context) error {
		inner := locker.WithLock(ctx, "reconcile", time.Minute, func(context.Context) error {
			t.Fatal("nested holder must not run")
			return nil
		})
		require.ErrorIs(t, inner, ErrBusy)
		return nil
	})
	require.NoError(t, err)

	ran := false
	require.NoError(t, locker.WithLock(ctx, "reconcile", time.Minute, func(context.Context) error {
		ran = true
		return nil
	}))
	require.True(t, ran)
}

func TestNilLockerRunsFn(t *testing.T) {
	var locker *Locker
	called := false
	require.NoError(t, locker.WithLock(context.Background(), "k", time.Second, func(context.Context) error {
		called = true
		return nil
	}))
	require.True(t, called)
}
