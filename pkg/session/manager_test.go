package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartAndCancel(t *testing.T) {
	mgr := NewManager()

	ctx, release := mgr.Start(context.Background(), "task-1")
	assert.Equal(t, 1, mgr.Running())
	assert.True(t, mgr.Active("task-1"))
	assert.False(t, mgr.Active("task-2"))

	require.NoError(t, mgr.Cancel("task-1"))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	release()
	assert.Equal(t, 0, mgr.Running())
	assert.False(t, mgr.Active("task-1"))
	assert.ErrorIs(t, mgr.Cancel("task-1"), domain.ErrTaskNotFound)
}

func TestManager_CancelUnknown(t *testing.T) {
	assert.ErrorIs(t, NewManager().Cancel("nope"), domain.ErrTaskNotFound)
}

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()
	count := 10000

	// 1. Lock many keys
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("repo#%d", i)
		_ = mgr.WithLock(ctx, key, func(context.Context) error { return nil })
	}

	// 2. No lock entries must leak
	assert.Empty(t, mgr.locks)
}

func TestManager_WithLockSerializesSameKey(t *testing.T) {
	mgr := NewManager()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.WithLock(context.Background(), "owner/repo#1", func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

type fakeLocker struct {
	locked   []string
	unlocked []string
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locked = append(f.locked, key)
	return func(ctx context.Context) error {
		f.unlocked = append(f.unlocked, key)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	mgr := NewManager(WithLocker(locker))

	err := mgr.WithLock(context.Background(), "k", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, locker.locked)
	assert.Equal(t, []string{"k"}, locker.unlocked)

	locker.err = errors.New("redis down")
	called := false
	err = mgr.WithLock(context.Background(), "k", func(context.Context) error { called = true; return nil })
	assert.Error(t, err)
	assert.False(t, called)
}
