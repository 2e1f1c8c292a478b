package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/extract"
	"github.com/codrblog/autoshell/pkg/ports"
	"github.com/codrblog/autoshell/pkg/session"
	"github.com/codrblog/autoshell/pkg/shell"
)

// DefaultBudget is the number of consecutive failed cycles tolerated per run.
const DefaultBudget = 5

// Orchestrator drives task runs. It is safe for concurrent use; every run
// owns its own session.
type Orchestrator struct {
	completer ports.Completer
	runner    *shell.Runner
	builder   *session.Builder
	publisher ports.Publisher

	budget int
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBudget overrides DefaultBudget. Non-positive values are ignored.
func WithBudget(budget int) Option {
	return func(o *Orchestrator) {
		if budget > 0 {
			o.budget = budget
		}
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// New creates an Orchestrator. A nil publisher discards events.
func New(completer ports.Completer, runner *shell.Runner, builder *session.Builder, publisher ports.Publisher, opts ...Option) *Orchestrator {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	o := &Orchestrator{
		completer: completer,
		runner:    runner,
		builder:   builder,
		publisher: publisher,
		budget:    DefaultBudget,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes task under taskID and returns the JSON transcript produced
// after the seed messages. Budget exhaustion and cancellation are not errors;
// a failing completion call is.
func (o *Orchestrator) Run(ctx context.Context, task, taskID string) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", domain.ErrEmptyTask
	}

	started := time.Now()
	sess := o.builder.Build(task)
	budget := o.budget
	cycles := 0
	reason := domain.StopExhausted

	o.logger.Info("task started", "task_id", taskID, "budget", budget)

	for budget > 0 {
		if ctx.Err() != nil {
			o.publisher.Publish(taskID, domain.EventCancel, nil)
			reason = domain.StopCanceled
			break
		}
		cycles++

		// 1. Requesting
		requested := time.Now()
		text, err := o.completer.Complete(ctx, sess.Snapshot())
		if err != nil {
			if ctx.Err() != nil {
				o.publisher.Publish(taskID, domain.EventCancel, nil)
				reason = domain.StopCanceled
				break
			}
			o.finish(ctx, taskID, domain.StopFailed, cycles, started)
			return "", fmt.Errorf("completion request failed: %w", err)
		}
		latency := time.Since(requested)

		sess.Append(domain.RoleAssistant, text)
		o.publisher.Publish(taskID, domain.EventNext, text)

		// 2. Extracting
		commands := extract.Commands(text)
		if len(commands) == 0 {
			o.publisher.Publish(taskID, domain.EventHalt, nil)
			o.cycle(ctx, taskID, cycles, budget, 0, true, latency)
			reason = domain.StopHalted
			break
		}

		// 3. Executing
		result := o.runner.Run(ctx, commands)
		if o.hooks.OnOutcome != nil {
			for i := range result.Outcomes {
				o.hooks.OnOutcome(ctx, taskID, &result.Outcomes[i])
			}
		}

		// 4. Folding
		if result.OK {
			summary := Summary(result.Outcomes)
			sess.Append(domain.RoleUser, ResultsMessage(summary))
			o.publisher.Publish(taskID, domain.EventResults, summary)
			budget = o.budget
		} else {
			last, _ := result.Last()
			errText := last.ErrorText()
			sess.Append(domain.RoleUser, FailureMessage(last.Command, errText))
			o.publisher.Publish(taskID, domain.EventError, errText)
			budget--
			o.logger.Warn("command failed", "task_id", taskID, "command", last.Command, "exit_code", last.ExitCode, "budget", budget)
		}
		o.cycle(ctx, taskID, cycles, budget, len(commands), result.OK, latency)
	}

	if reason == domain.StopExhausted {
		o.logger.Warn("task budget exhausted", "task_id", taskID, "cycles", cycles)
	}

	o.publisher.Publish(taskID, domain.EventHistory, sess.Transcript())
	o.finish(ctx, taskID, reason, cycles, started)

	out, err := sess.TranscriptJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	return out, nil
}

// Try runs the task and always completes its stream. A run error is logged
// and published as an error event before the stream is closed.
func (o *Orchestrator) Try(ctx context.Context, task, taskID string) (string, error) {
	defer o.publisher.Complete(taskID)

	out, err := o.Run(ctx, task, taskID)
	if err != nil {
		o.logger.Error("task failed", "task_id", taskID, "error", err)
		o.publisher.Publish(taskID, domain.EventError, err.Error())
		return "", err
	}
	return out, nil
}

func (o *Orchestrator) cycle(ctx context.Context, taskID string, n, budget, commands int, ok bool, latency time.Duration) {
	o.logger.Debug("cycle finished", "task_id", taskID, "cycle", n, "commands", commands, "ok", ok, "budget", budget)
	if o.hooks.OnCycle == nil {
		return
	}
	o.hooks.OnCycle(ctx, &domain.CycleEvent{
		Timestamp: time.Now(),
		TaskID:    taskID,
		Cycle:     n,
		Budget:    budget,
		Commands:  commands,
		OK:        ok,
		Latency:   latency,
	})
}

func (o *Orchestrator) finish(ctx context.Context, taskID string, reason domain.StopReason, cycles int, started time.Time) {
	elapsed := time.Since(started)
	o.logger.Info("task finished", "task_id", taskID, "reason", reason, "cycles", cycles, "duration", elapsed)
	if o.hooks.OnFinish == nil {
		return
	}
	o.hooks.OnFinish(ctx, &domain.FinishEvent{
		Timestamp: time.Now(),
		TaskID:    taskID,
		Reason:    reason,
		Cycles:    cycles,
		Duration:  elapsed,
	})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, domain.EventName, any) bool { return false }
func (nopPublisher) Complete(string)                              {}
