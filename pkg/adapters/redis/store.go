package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "autoshell:"

var _ ports.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements ports.HistoryStore as one Redis list per issue,
// each element a JSON-encoded message.
type HistoryStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*HistoryStore)

// WithTTL expires a conversation ttl after its last update.
func WithTTL(ttl time.Duration) Option {
	return func(s *HistoryStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *HistoryStore) {
		s.prefix = prefix
	}
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *HistoryStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *HistoryStore {
	store := &HistoryStore{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *HistoryStore) Client() *backend.Client {
	return s.client
}

func (s *HistoryStore) key(repo string, issue int) string {
	return fmt.Sprintf("%shistory:%s#%d", s.prefix, repo, issue)
}

// Get reads the whole list.
func (s *HistoryStore) Get(ctx context.Context, repo string, issue int) ([]domain.Message, error) {
	vals, err := s.client.LRange(ctx, s.key(repo, issue), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	msgs := make([]domain.Message, 0, len(vals))
	for _, v := range vals {
		var m domain.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Add appends messages and refreshes the TTL in one transaction.
func (s *HistoryStore) Add(ctx context.Context, repo string, issue int, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	vals := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		vals = append(vals, data)
	}

	k := s.key(repo, issue)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, k, vals...)
	if s.ttl > 0 {
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history to redis: %w", err)
	}
	return nil
}

// Remove deletes the list.
func (s *HistoryStore) Remove(ctx context.Context, repo string, issue int) error {
	if err := s.client.Del(ctx, s.key(repo, issue)).Err(); err != nil {
		return fmt.Errorf("failed to delete history from redis: %w", err)
	}
	return nil
}
