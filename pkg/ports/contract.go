package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHistoryStoreContract runs a suite of tests to verify that a HistoryStore implementation
// adheres to the defined interface contract.
func RunHistoryStoreContract(t *testing.T, store HistoryStore) {
	ctx := context.Background()
	repo := "contract/" + time.Now().Format("20060102150405")

	t.Run("Get Missing", func(t *testing.T) {
		msgs, err := store.Get(ctx, repo, 1)
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})

	t.Run("Add Appends", func(t *testing.T) {
		first := []domain.Message{
			{Role: domain.RoleUser, Content: "foo"},
			{Role: domain.RoleAssistant, Content: "bar"},
		}
		require.NoError(t, store.Add(ctx, repo, 2, first))
		require.NoError(t, store.Add(ctx, repo, 2, []domain.Message{{Role: domain.RoleAssistant, Content: "other"}}))

		msgs, err := store.Get(ctx, repo, 2)
		require.NoError(t, err)
		assert.Equal(t, append(first, domain.Message{Role: domain.RoleAssistant, Content: "other"}), msgs)
	})

	t.Run("Keys Are Isolated", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, repo, 3, []domain.Message{{Role: domain.RoleUser, Content: "three"}}))
		require.NoError(t, store.Add(ctx, repo+"x", 3, []domain.Message{{Role: domain.RoleUser, Content: "other repo"}}))

		msgs, err := store.Get(ctx, repo, 3)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "three", msgs[0].Content)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, repo, 2))

		msgs, err := store.Get(ctx, repo, 2)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		// Removing twice is a no-op
		assert.NoError(t, store.Remove(ctx, repo, 2))
	})

	t.Run("Concurrent Add", func(t *testing.T) {
		done := make(chan error, 10)
		for i := 0; i < 10; i++ {
			go func(i int) {
				done <- store.Add(ctx, repo, 4, []domain.Message{{Role: domain.RoleUser, Content: fmt.Sprint(i)}})
			}(i)
		}
		for i := 0; i < 10; i++ {
			require.NoError(t, <-done)
		}
		msgs, err := store.Get(ctx, repo, 4)
		require.NoError(t, err)
		assert.Len(t, msgs, 10)
	})
}
