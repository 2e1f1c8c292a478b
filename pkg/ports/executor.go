package ports

import (
	"context"

	"github.com/codrblog/autoshell/pkg/domain"
)

// Executor runs one command string to completion and reports its raw outcome.
// A returned error means the execution itself broke (not that the command failed).
// Implementations that honour ctx cancellation can stop in-flight commands.
type Executor interface {
	Exec(ctx context.Context, command string) (domain.ExecResult, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, command string) (domain.ExecResult, error)

// Exec calls f.
func (f ExecutorFunc) Exec(ctx context.Context, command string) (domain.ExecResult, error) {
	return f(ctx, command)
}
