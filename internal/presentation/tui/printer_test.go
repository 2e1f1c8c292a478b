package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/codrblog/autoshell/pkg/domain"
)

func TestPrinter_Ascii(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, func(s string) (string, error) { return strings.ToUpper(s), nil }, termenv.Ascii)

	assert.True(t, p.Publish("t", domain.EventNext, "run ls"))
	p.Publish("t", domain.EventResults, "# ls\nok")
	p.Publish("t", domain.EventError, "boom")
	p.Publish("t", domain.EventHalt, nil)
	p.Publish("t", domain.EventHistory, []domain.Message{{}, {}})

	out := buf.String()
	assert.Contains(t, out, "── model\nRUN LS\n")
	assert.Contains(t, out, "── results\n# ls\nok\n")
	assert.Contains(t, out, "── error\nboom\n")
	assert.Contains(t, out, "── done\n")
	assert.Contains(t, out, "── history (2 messages)\n")
}

func TestPrinter_Complete(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{}, nil, termenv.Ascii)
	p.Complete("t")
	p.Complete("t")

	select {
	case <-p.Done():
	default:
		t.Fatal("expected printer to be done")
	}
}

func TestPlain(t *testing.T) {
	out, err := Plain("# title")
	assert.NoError(t, err)
	assert.Equal(t, "# title", out)
}
