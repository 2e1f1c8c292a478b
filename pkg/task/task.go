// Package task reads task submissions: an optional header of "Field: value"
// lines, a "---" separator, then the free-form task text.
package task

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/codrblog/autoshell/internal/logging"
)

const separator = "---"

var leadingSpace = regexp.MustCompile(`(?m)^\s+`)

// Task is a parsed submission.
type Task struct {
	Files []string `json:"files"`
	Text  string   `json:"task"`
}

// Parser reads task submissions. Unknown header fields are logged and ignored.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser logging to logger, or discarding when nil.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse splits text into header and body. Without a separator the whole text
// is the body. Leading whitespace is removed from every body line.
func (p *Parser) Parse(text string) Task {
	header, body := "", text
	if i := strings.Index(text, separator); i >= 0 {
		header = strings.TrimSpace(text[:i])
		body = strings.TrimSpace(text[i+len(separator):])
	}

	t := Task{
		Files: []string{},
		Text:  leadingSpace.ReplaceAllString(strings.TrimSpace(body), ""),
	}
	if header != "" {
		p.readFields(header, &t)
	}
	return t
}

func (p *Parser) readFields(header string, t *Task) {
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimSpace(line)
		field, value, _ := strings.Cut(line, ":")
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "file":
			t.Files = append(t.Files, value)
		default:
			p.logger.Warn("unknown task header field", "field", field, "value", value, "line", line)
		}
	}
}

// Parse reads text with a Parser that discards diagnostics.
func Parse(text string) Task {
	return NewParser(nil).Parse(text)
}

// Prompt returns the text handed to the model. Listed files are appended as context.
func (t Task) Prompt() string {
	if len(t.Files) == 0 {
		return t.Text
	}
	return t.Text + "\n\nFiles: " + strings.Join(t.Files, ", ")
}
