// Package tui renders task progress for humans at a terminal.
package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/codrblog/autoshell/pkg/domain"
	"github.com/codrblog/autoshell/pkg/ports"
)

var _ ports.Publisher = (*Printer)(nil)

// Printer is a ports.Publisher that prints events as they happen.
// Completions are rendered as markdown; command output is shown verbatim.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	render  Renderer
	profile termenv.Profile
	done    chan struct{}
	once    sync.Once
}

// NewPrinter creates a Printer writing to out. A nil render prints markdown as is.
func NewPrinter(out io.Writer, render Renderer, profile termenv.Profile) *Printer {
	if render == nil {
		render = Plain
	}
	return &Printer{
		out:     out,
		render:  render,
		profile: profile,
		done:    make(chan struct{}),
	}
}

func (p *Printer) Publish(taskID string, name domain.EventName, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case domain.EventNext:
		text, _ := payload.(string)
		p.header("model", "#818cf8")
		rendered, err := p.render(text)
		if err != nil {
			rendered = text
		}
		fmt.Fprintln(p.out, strings.TrimRight(rendered, "\n"))
	case domain.EventResults:
		p.header("results", "#34d399")
		fmt.Fprintln(p.out, payload)
	case domain.EventError:
		p.header("error", "#f87171")
		fmt.Fprintln(p.out, payload)
	case domain.EventHalt:
		p.header("done", "#34d399")
	case domain.EventCancel:
		p.header("canceled", "#fbbf24")
	case domain.EventHistory:
		msgs, _ := payload.([]domain.Message)
		p.header(fmt.Sprintf("history (%d messages)", len(msgs)), "#94a3b8")
	default:
		data, _ := json.Marshal(payload)
		p.header(string(name), "#94a3b8")
		fmt.Fprintln(p.out, string(data))
	}
	return true
}

func (p *Printer) Complete(taskID string) {
	p.once.Do(func() { close(p.done) })
}

// Done is closed once the task has completed.
func (p *Printer) Done() <-chan struct{} {
	return p.done
}

func (p *Printer) header(label, color string) {
	s := p.profile.String("── " + label).Bold().Foreground(p.profile.Color(color))
	fmt.Fprintln(p.out, s)
}
