package session

import (
	"sync/atomic"

	"github.com/codrblog/autoshell/pkg/domain"
)

// DefaultPreamble is used when no preamble was configured.
const DefaultPreamble = `You are a shell automation assistant running on a Linux machine.
Reply with the shell commands needed to complete the task, each inside a fenced code block.
You will receive the output of every command. When the task is complete, reply without code blocks.`

// Builder seeds new sessions with the process-wide preamble.
// SetPreamble may be called concurrently with Build.
type Builder struct {
	preamble atomic.Pointer[string]
}

// NewBuilder creates a Builder using preamble, or DefaultPreamble when empty.
func NewBuilder(preamble string) *Builder {
	b := &Builder{}
	if preamble == "" {
		preamble = DefaultPreamble
	}
	b.SetPreamble(preamble)
	return b
}

// SetPreamble replaces the preamble for sessions built from now on.
// Sessions already built keep the preamble they captured.
func (b *Builder) SetPreamble(text string) {
	b.preamble.Store(&text)
}

// Preamble returns the current preamble.
func (b *Builder) Preamble() string {
	if p := b.preamble.Load(); p != nil {
		return *p
	}
	return DefaultPreamble
}

// Build returns a session holding the preamble, the assistant acknowledgement and the task.
func (b *Builder) Build(task string) *domain.Session {
	return domain.NewSession(
		domain.Message{Role: domain.RoleSystem, Content: b.Preamble()},
		domain.Message{Role: domain.RoleAssistant, Content: domain.Acknowledgement},
		domain.Message{Role: domain.RoleUser, Content: task},
	)
}
