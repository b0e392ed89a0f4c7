package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/checkin"
)

func newTestLocker(t *testing.T) (*checkin.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return checkin.NewRedisLocker(client, nil), mr
}

func TestLocker_AcquireAndContend(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	// Second acquisition on the same key is refused while the first holds.
	_, ok, err = locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is an independent lock.
	_, ok, err = locker.Acquire(ctx, "REG-14112025-000002", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocker_ReleaseFreesLock(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "REG-14112025-000001", token))

	_, ok, err = locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "released lock must be acquirable again")
}

func TestLocker_ReleaseWithStaleTokenKeepsNewOwner(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	staleToken, ok, err := locker.Acquire(ctx, "REG-14112025-000001", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL expires, another kiosk takes the lock.
	mr.FastForward(2 * time.Second)
	_, ok, err = locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// The previous holder's release is a no-op against the new owner.
	require.NoError(t, locker.Release(ctx, "REG-14112025-000001", staleToken))
	_, ok, err = locker.Acquire(ctx, "REG-14112025-000001", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "new owner's lock must survive a stale release")
}

func TestLocker_ReleaseAfterExpiryIsNoop(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	token, ok, err := locker.Acquire(ctx, "REG-14112025-000001", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	assert.NoError(t, locker.Release(ctx, "REG-14112025-000001", token))
}
