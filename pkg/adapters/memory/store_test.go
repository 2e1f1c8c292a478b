package memory_test

import (
	"context"
	"testing"

	"github.com/codrblog/autoshell/pkg/adapters/memory"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_Contract(t *testing.T) {
	store := memory.NewHistoryStore()
	ports.RunHistoryStoreContract(t, store)
}

func TestHistoryStore_GetReturnsCopy(t *testing.T) {
	store := memory.NewHistoryStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "o/r", 1, []domain.Message{{Role: domain.RoleUser, Content: "a"}}))

	msgs, err := store.Get(ctx, "o/r", 1)
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, _ := store.Get(ctx, "o/r", 1)
	assert.Equal(t, "a", again[0].Content)
	assert.Equal(t, 1, store.Len())
}
