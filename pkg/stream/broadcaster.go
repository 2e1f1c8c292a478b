package stream

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/codrblog/autoshell/internal/logging"
	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

var (
	_ ports.Publisher = (*Broadcaster)(nil)
	_ ports.Publisher = Nop{}
)

// Broadcaster keeps the sinks registered per task ID.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[Sink]struct{} // TaskID -> Set of Sinks
	logger      *slog.Logger
}

// Option configures the Broadcaster.
type Option func(*Broadcaster)

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subscribers: make(map[string]map[Sink]struct{}),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe opens sink and registers it for taskID.
// The returned func removes this sink only; it is safe to call after Complete.
func (b *Broadcaster) Subscribe(taskID string, sink Sink) (func(), error) {
	if err := sink.Open(); err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}

	b.mu.Lock()
	if _, ok := b.subscribers[taskID]; !ok {
		b.subscribers[taskID] = make(map[Sink]struct{})
	}
	b.subscribers[taskID][sink] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug("Stream: subscribed", "task_id", taskID)

	return func() {
		if b.remove(taskID, sink) {
			sink.Close()
		}
	}, nil
}

// Publish sends the event to every sink of taskID.
// It returns false when nobody is subscribed.
func (b *Broadcaster) Publish(taskID string, name domain.EventName, payload any) bool {
	sinks := b.sinks(taskID)
	if len(sinks) == 0 {
		return false
	}

	ev := domain.TaskEvent{TaskID: taskID, Name: name, Payload: payload}
	frame, err := Frame(ev)
	if err != nil {
		b.logger.Error("Stream: cannot encode event", "task_id", taskID, "event", name, "error", err)
		return true
	}

	for _, sink := range sinks {
		if err := sink.Send(frame); err != nil {
			// Drop the broken sink; the others keep receiving.
			b.logger.Warn("Stream: dropping sink", "task_id", taskID, "event", name, "error", err)
			if b.remove(taskID, sink) {
				sink.Close()
			}
		}
	}
	if ev.Name.Terminal() {
		b.logger.Debug("Stream: terminal event", "task_id", taskID, "event", name)
	}
	return true
}

// Complete closes and removes every sink of taskID. It is idempotent.
func (b *Broadcaster) Complete(taskID string) {
	b.mu.Lock()
	subs := b.subscribers[taskID]
	delete(b.subscribers, taskID)
	b.mu.Unlock()

	for sink := range subs {
		sink.Close()
	}
	if len(subs) > 0 {
		b.logger.Debug("Stream: completed", "task_id", taskID, "sinks", len(subs))
	}
}

// Subscribers returns the number of sinks registered for taskID.
func (b *Broadcaster) Subscribers(taskID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[taskID])
}

func (b *Broadcaster) sinks(taskID string) []Sink {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[taskID]
	out := make([]Sink, 0, len(subs))
	for s := range subs {
		out = append(out, s)
	}
	return out
}

// remove reports whether sink was still registered.
func (b *Broadcaster) remove(taskID string, sink Sink) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[taskID]
	if !ok {
		return false
	}
	if _, ok := subs[sink]; !ok {
		return false
	}
	delete(subs, sink)
	if len(subs) == 0 {
		delete(b.subscribers, taskID)
	}
	return true
}

// Nop discards every event. It is used when nobody can watch a task.
type Nop struct{}

func (Nop) Publish(string, domain.EventName, any) bool { return false }
func (Nop) Complete(string)                              {}
