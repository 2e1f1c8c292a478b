package middleware_test

import (
	"context"
	"testing"

	"github.com/codrblog/autoshell/pkg/adapters/memory"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewHistoryStore()
	mw, err := middleware.NewRedactionMiddleware(middleware.DefaultSecretPatterns)
	require.NoError(t, err)
	store := mw(underlying)

	token := "ghp_" + "abcdefghijklmnopqrstuvwxyz0123456789"
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "# env\nGITHUB_TOKEN=" + token},
		{Role: domain.RoleAssistant, Content: "nothing to hide"},
	}
	require.NoError(t, store.Add(ctx, "o/r", 7, msgs))

	// 1. Stored content is masked
	got, err := store.Get(ctx, "o/r", 7)
	require.NoError(t, err)
	assert.Equal(t, "# env\nGITHUB_TOKEN=***", got[0].Content)
	assert.Equal(t, "nothing to hide", got[1].Content)

	// 2. The caller's slice is untouched
	assert.Contains(t, msgs[0].Content, token)
}

func TestRedactionMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewRedactionMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	underlying := memory.NewHistoryStore()
	redact, err := middleware.NewRedactionMiddleware([]string{`secret`})
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	store := middleware.Chain(underlying, redact, encrypt)
	require.NoError(t, store.Add(ctx, "o/r", 1, []domain.Message{{Role: domain.RoleUser, Content: "a secret"}}))

	got, err := store.Get(ctx, "o/r", 1)
	require.NoError(t, err)
	assert.Equal(t, "a ***", got[0].Content)
}
