package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codrblog/autoshell/internal/config"
	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/adapters/memory"
	"github.com/codrblog/autoshell/pkg/adapters/openai"
	"github.com/codrblog/autoshell/pkg/adapters/process"
	"github.com/codrblog/autoshell/pkg/adapters/redis"
	"github.com/codrblog/autoshell/pkg/observability"
	"github.com/codrblog/autoshell/pkg/orchestrator"
	"github.com/codrblog/autoshell/pkg/persistence/middleware"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/codrblog/autoshell/pkg/session"
	"github.com/codrblog/autoshell/pkg/shell"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	builder  *session.Builder
	sessions *session.Manager
	metrics  *observability.Metrics
	history  ports.HistoryStore

	closers []io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	preamble, err := config.LoadPreamble(cfg.Orchestrator.PreambleFile)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		builder: session.NewBuilder(preamble),
		metrics: observability.NewMetrics(),
		closers: []io.Closer{logFile},
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	switch cfg.History.Backend {
	case config.BackendRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password.Value(), cfg.Redis.DB,
			redis.WithTTL(cfg.History.TTL),
			redis.WithPrefix(cfg.Redis.Prefix),
		)
		a.history = store
		a.closers = append(a.closers, store.Client())
		sessionOpts = append(sessionOpts, session.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)))
	default:
		a.history = memory.NewHistoryStore()
	}
	a.sessions = session.NewManager(sessionOpts...)

	mws, err := historyMiddleware(cfg.History)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.history = middleware.Chain(a.history, mws...)

	logger.Debug("configuration loaded", "history", cfg.History.Backend, "model", cfg.Completion.Model)
	return a, nil
}

// orchestrator builds the task loop publishing to publisher.
func (a *app) orchestrator(publisher ports.Publisher) (*orchestrator.Orchestrator, error) {
	completer, err := openai.New(openai.Config{
		Model:   a.cfg.Completion.Model,
		APIKey:  a.cfg.Completion.APIKey.Value(),
		BaseURL: a.cfg.Completion.BaseURL,
	}, openai.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create completer: %w", err)
	}

	execOpts := []process.RunnerOption{process.WithTimeout(a.cfg.Orchestrator.CommandTimeout)}
	if a.cfg.Orchestrator.Workdir != "" {
		execOpts = append(execOpts, process.WithBaseDir(a.cfg.Orchestrator.Workdir))
	}
	runner := shell.NewRunner(process.NewRunner(execOpts...), shell.WithLogger(a.logger))

	return orchestrator.New(completer, runner, a.builder, publisher,
		orchestrator.WithBudget(a.cfg.Orchestrator.Budget),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithLifecycleHooks(a.metrics.Hooks()),
	), nil
}

// historyMiddleware masks, then encrypts, cached conversations as configured.
func historyMiddleware(cfg config.HistoryConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Redact {
		patterns := cfg.RedactPatterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultSecretPatterns
		}
		mw, err := middleware.NewRedactionMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey.IsSet() {
		active, err := config.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		enc := middleware.EncryptionConfig{ActiveKey: active}
		for _, k := range cfg.FallbackKeys {
			key, err := config.DecodeKey(k)
			if err != nil {
				return nil, err
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
