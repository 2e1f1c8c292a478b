package ports

import (
	"context"

	"github.com/codrblog/autoshell/pkg/domain"
)

// Completer is the language-model collaborator: ordered transcript in, generated text out.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, messages []domain.Message) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	return f(ctx, messages)
}
