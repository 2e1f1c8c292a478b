package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/codrblog/autoshell/pkg/domain"
)

// DefaultShell is the interpreter used to run commands.
const DefaultShell = "/bin/sh"

// Runner implements ports.Executor by running each command through a shell.
// Output is captured verbatim; nothing is streamed.
type Runner struct {
	shell   string
	baseDir string
	env     []string
	timeout time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithShell overrides the shell binary (invoked as `<shell> -c <command>`).
func WithShell(shell string) RunnerOption {
	return func(r *Runner) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithTimeout bounds every command. Zero means no limit.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		shell: DefaultShell,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs command to completion. A non-zero exit is reported in the result, not as an error;
// the error return is reserved for failures to run the shell at all.
// Cancelling ctx kills the process.
func (r *Runner) Exec(ctx context.Context, command string) (domain.ExecResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Dir = r.baseDir
	if len(r.env) > 0 {
		cmd.Env = append(cmd.Environ(), r.env...)
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := domain.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		result.Succeeded = true
		return result, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The shell never ran (missing binary, bad working directory...).
		result.ExitCode = -1
		return result, fmt.Errorf("failed to start %s: %w", r.shell, err)
	}

	result.ExitCode = exitErr.ExitCode()
	if ctx.Err() != nil {
		result.Err = fmt.Errorf("execution interrupted: %w", ctx.Err())
		return result, nil
	}

	result.Err = fmt.Errorf("execution failed: %v. Stderr: %s", err, strings.TrimSpace(result.Stderr))
	return result, nil
}
