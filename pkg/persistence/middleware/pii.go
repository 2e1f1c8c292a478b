package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultSecretPatterns match common credentials that show up in command output.
var DefaultSecretPatterns = []string{
	`gh[pousr]_[A-Za-z0-9]{36,}`,
	`github_pat_[A-Za-z0-9_]{22,}`,
	`sk-[A-Za-z0-9_-]{20,}`,
	`AKIA[0-9A-Z]{16}`,
}

type redactionMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks matches of patterns in
// message content before it is stored. Conversations fed back to the model are
// read from the store, so they never carry the masked values again.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Add(ctx context.Context, repo string, issue int, messages []domain.Message) error {
	// Copy so the caller's transcript stays intact.
	masked := make([]domain.Message, len(messages))
	for i, msg := range messages {
		masked[i] = domain.Message{Role: msg.Role, Content: m.mask(msg.Content)}
	}
	return m.next.Add(ctx, repo, issue, masked)
}

func (m *redactionMiddleware) Get(ctx context.Context, repo string, issue int) ([]domain.Message, error) {
	return m.next.Get(ctx, repo, issue)
}

func (m *redactionMiddleware) Remove(ctx context.Context, repo string, issue int) error {
	return m.next.Remove(ctx, repo, issue)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
