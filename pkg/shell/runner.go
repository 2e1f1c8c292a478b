// Package shell runs the commands proposed by the model, one after another,
// stopping at the first real failure.
package shell

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

// Runner executes ordered command sequences through an Executor.
type Runner struct {
	executor ports.Executor
	logger   *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner backed by executor.
func NewRunner(executor ports.Executor, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sanitize removes comment lines (lines starting with '#') from a command.
func Sanitize(command domain.Command) domain.Command {
	lines := strings.Split(command, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Run executes commands strictly in order. Each outcome records the sanitized command.
//
// A failure reported with exit code 0 is rewritten to a success. Execution stops after the
// first outcome that is unsuccessful with a non-zero exit code; that outcome is included.
// An Executor error is turned into such a failure (exit code -1).
func (r *Runner) Run(ctx context.Context, commands []domain.Command) domain.RunResult {
	result := domain.RunResult{OK: true, Outcomes: make([]domain.CommandOutcome, 0, len(commands))}

	for _, command := range commands {
		line := Sanitize(command)

		exec, err := r.executor.Exec(ctx, line)
		if err != nil {
			r.logger.Warn("command execution broke", "command", line, "err", err)
			exec = domain.ExecResult{
				ExitCode: -1,
				Stdout:   exec.Stdout,
				Stderr:   exec.Stderr,
				Err:      err,
			}
		}

		outcome := domain.CommandOutcome{
			Command:   line,
			ExitCode:  exec.ExitCode,
			Stdout:    exec.Stdout,
			Stderr:    exec.Stderr,
			Succeeded: exec.Succeeded,
			Err:       exec.Err,
		}

		if !outcome.Succeeded && outcome.ExitCode == 0 {
			outcome.Succeeded = true
			outcome.Stderr = ""
			outcome.Err = nil
		}

		result.Outcomes = append(result.Outcomes, outcome)
		r.logger.Debug("command finished", "command", line, "exit_code", outcome.ExitCode, "ok", outcome.Succeeded)

		if outcome.Failed() {
			result.OK = false
			break
		}
	}

	return result
}
