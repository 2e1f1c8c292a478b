// Package extract finds the shell commands a model proposes in its free-form output.
package extract

import (
	"regexp"
	"strings"

	"github.com/codrblog/autoshell/pkg/domain"
)

const fence = "```"

// shellTag matches a leading language tag on a fenced block.
var shellTag = regexp.MustCompile(`^shell\b`)

// IsSingleCommand reports whether text starts with the inline shell marker.
func IsSingleCommand(text string) bool {
	return strings.HasPrefix(text, "#shell") || strings.HasPrefix(text, "# shell")
}

// Commands returns the commands proposed in text, in order of appearance.
//
// An empty result is the halt signal: the model has nothing more to execute.
// Text starting with the inline marker is returned whole as a single command.
// Otherwise every pair of ``` fences yields one command, with a leading "shell"
// tag removed and the set -e prelude prepended. An opening fence without a
// closing one ends the scan.
func Commands(text string) []domain.Command {
	single := IsSingleCommand(text)
	if !single && !strings.Contains(text, fence) {
		return nil
	}

	if single {
		return []domain.Command{strings.TrimSpace(text)}
	}

	var commands []domain.Command
	for {
		start := strings.Index(text, fence)
		if start == -1 {
			break
		}
		rest := text[start+len(fence):]

		end := strings.Index(rest, fence)
		if end == -1 {
			break
		}

		block := strings.TrimSpace(rest[:end])
		block = shellTag.ReplaceAllString(block, "")
		commands = append(commands, domain.ShellPrelude+strings.TrimSpace(block))

		text = rest[end+len(fence):]
	}

	return commands
}
