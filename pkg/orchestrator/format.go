package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codrblog/autoshell/pkg/domain"
)

// Summary renders one "# <command>\n<stdout>" block per outcome, separated by a blank line.
func Summary(outcomes []domain.CommandOutcome) string {
	blocks := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		out := o.Stdout
		if out == "" {
			out = domain.NoOutput
		}
		blocks = append(blocks, "# "+o.Command+"\n"+out)
	}
	return strings.Join(blocks, "\n\n")
}

// ResultsMessage is the user turn reporting a successful run.
func ResultsMessage(summary string) string {
	return "Results:\n" + summary + "\n\nAnything else?"
}

// FailureMessage is the user turn asking the model to fix a failed command.
func FailureMessage(command, errText string) string {
	return fmt.Sprintf("Command `%s` has failed with this error:\n%s\nFix the command and write in the next instruction.", command, errText)
}
