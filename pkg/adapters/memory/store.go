// Package memory provides in-process implementations of the autoshell ports.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

var _ ports.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements ports.HistoryStore in memory.
// Safe for concurrent use. Entries live as long as the process.
type HistoryStore struct {
	data map[string][]domain.Message
	mu   sync.RWMutex
}

// NewHistoryStore creates an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[string][]domain.Message),
	}
}

func key(repo string, issue int) string {
	return fmt.Sprintf("%s#%d", repo, issue)
}

// Get returns a copy of the cached conversation.
func (s *HistoryStore) Get(ctx context.Context, repo string, issue int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.data[key(repo, issue)]
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Add appends messages to the cached conversation.
func (s *HistoryStore) Add(ctx context.Context, repo string, issue int, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(repo, issue)
	s.data[k] = append(s.data[k], messages...)
	return nil
}

// Remove drops the cached conversation.
func (s *HistoryStore) Remove(ctx context.Context, repo string, issue int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key(repo, issue))
	return nil
}

// Len returns the number of cached conversations.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
