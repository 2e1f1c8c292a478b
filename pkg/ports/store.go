package ports

import (
	"context"

	"github.com/codrblog/autoshell/pkg/domain"
)

// HistoryStore caches conversation transcripts per repository issue.
type HistoryStore interface {
	// Get returns the cached messages, or an empty slice when there are none.
	Get(ctx context.Context, repo string, issue int) ([]domain.Message, error)

	// Add appends messages to the cached conversation.
	Add(ctx context.Context, repo string, issue int, messages []domain.Message) error

	// Remove drops the cached conversation. Removing a missing entry is not an error.
	Remove(ctx context.Context, repo string, issue int) error
}

// Repository prepares local checkouts and publishes their changes.
// Both operations report plain success; details are logged by the implementation.
type Repository interface {
	Prepare(ctx context.Context, fullName, cloneURL string) bool
	Push(ctx context.Context, fullName string) bool
	Path(fullName string) string
}
