package domain

import (
	"context"
	"time"
)

// EventName identifies a task event on the wire.
type EventName string

const (
	EventNext    EventName = "next"    // payload: raw completion text
	EventResults EventName = "results" // payload: formatted results summary
	EventError   EventName = "error"   // payload: error text
	EventHalt    EventName = "halt"    // payload: nil
	EventCancel  EventName = "cancel"  // payload: nil
	EventHistory EventName = "history" // payload: []Message
)

// Terminal reports whether observers should treat the event as end of run.
func (n EventName) Terminal() bool {
	switch n {
	case EventHalt, EventCancel, EventError, EventHistory:
		return true
	}
	return false
}

// TaskEvent is an ephemeral notification about a running task. It is broadcast, never stored.
type TaskEvent struct {
	TaskID  string    `json:"taskId"`
	Name    EventName `json:"name"`
	Payload any       `json:"payload"`
}

// StopReason explains why a task loop ended.
type StopReason string

const (
	StopHalted    StopReason = "halted"
	StopExhausted StopReason = "budget_exhausted"
	StopCanceled  StopReason = "canceled"
	StopFailed    StopReason = "failed"
)

// CycleEvent describes one request/execute cycle of a task.
type CycleEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	TaskID    string        `json:"task_id"`
	Cycle     int           `json:"cycle"`
	Budget    int           `json:"budget"`
	Commands  int           `json:"commands"`
	OK        bool          `json:"ok"`
	Latency   time.Duration `json:"latency"` // completion latency
}

// FinishEvent describes the end of a task run.
type FinishEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	TaskID    string        `json:"task_id"`
	Reason    StopReason    `json:"reason"`
	Cycles    int           `json:"cycles"`
	Duration  time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnCycle   func(context.Context, *CycleEvent)
	OnOutcome func(context.Context, string, *CommandOutcome)
	OnFinish  func(context.Context, *FinishEvent)
}
