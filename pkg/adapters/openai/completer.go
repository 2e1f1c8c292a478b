// Package openai implements ports.Completer on top of any OpenAI-compatible
// chat completion endpoint, using langchaingo.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

var _ ports.Completer = (*Completer)(nil)

// Config holds the completion endpoint settings.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Completer sends transcripts to the chat completion endpoint.
type Completer struct {
	llm    llms.Model
	model  string
	logger *slog.Logger
}

// Option configures the Completer.
type Option func(*Completer)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Completer) {
		c.logger = logger
	}
}

// New creates a Completer for cfg.
func New(cfg Config, opts ...Option) (*Completer, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	// langchaingo refuses an empty token, even for local endpoints that ignore it.
	token := cfg.APIKey
	if token == "" {
		token = "placeholder"
	}

	clientOpts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(token),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	c := &Completer{
		llm:    llm,
		model:  model,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends messages and returns the content of all choices joined by newlines.
func (c *Completer) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	start := time.Now()

	resp, err := c.llm.GenerateContent(ctx, toContent(messages))
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", domain.ErrEmptyCompletion
	}

	parts := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		parts = append(parts, choice.Content)
	}

	c.logger.Debug("completion received",
		"model", c.model,
		"messages", len(messages),
		"choices", len(resp.Choices),
		"latency", time.Since(start),
	)
	return strings.Join(parts, "\n"), nil
}

func toContent(messages []domain.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(chatRole(m.Role), m.Content))
	}
	return out
}

func chatRole(r domain.Role) schema.ChatMessageType {
	switch r {
	case domain.RoleSystem:
		return schema.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
