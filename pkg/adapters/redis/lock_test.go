package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/codrblog/autoshell/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	// 1. Acquire Lock
	unlock, err := locker.Lock(ctx, "owner/repo#1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:owner/repo#1"), "Lock key should be set in Redis")

	// 2. Release Lock
	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:owner/repo#1"), "Lock key should be removed after unlock")
}

func TestLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()

	// 1. Client 1 acquires lock
	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	// 2. Client 2 blocks until its context expires
	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 3. Client 1 unlocks, client 2 succeeds
	require.NoError(t, unlock1(ctx))
	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_UnlockDoesNotStealForeignLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// The lock expired and somebody else took it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:k", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
