package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/codrblog/autoshell/pkg/adapters/redis"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHistoryStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunHistoryStoreContract(t, redis.NewFromClient(client))
}

func TestHistoryStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Hour), redis.WithPrefix("test:"))
	ctx := context.Background()

	// 1. Add sets the key with an expiration
	require.NoError(t, store.Add(ctx, "owner/repo", 7, []domain.Message{{Role: domain.RoleUser, Content: "hi"}}))
	assert.True(t, mr.Exists("test:history:owner/repo#7"))
	assert.Equal(t, time.Hour, mr.TTL("test:history:owner/repo#7"))

	// 2. Fast forward past the TTL
	mr.FastForward(2 * time.Hour)

	msgs, err := store.Get(ctx, "owner/repo", 7)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistoryStore_CorruptEntry(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	_, err := mr.Push("autoshell:history:o/r#1", "{not json")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "o/r", 1)
	assert.Error(t, err)
}
