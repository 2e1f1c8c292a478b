package github

import (
	"fmt"
	"strings"

	"github.com/codrblog/autoshell/pkg/domain"
)

// IssuePrompt is the task started for a new issue, or a "retry" comment.
func IssuePrompt(issue *Issue, checkout string) string {
	return fmt.Sprintf(`Context:
Next task comes from %s.
The repository is already cloned at %s
If a task requires reading the content of files, generate only commands to read them and nothing else.
If task is completed, post a message on issue number #%d at %s.
If you are done, commit all changes and push.

Description:
# %s
%s
`, issue.Repository.URL, checkout, issue.Number, issue.URL, issue.Title, issue.Body)
}

// FollowUpPrompt continues the issue conversation with the comment as next task.
func FollowUpPrompt(issue *Issue, checkout string, history []domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Context: we are completing a task from %s.
The repository is already cloned at %s.
If task is completed, post a message on issue number #%d at %s.
When you are done, commit all changes and push.

Description:
# %s
%s
`, issue.Repository.URL, checkout, issue.Number, issue.URL, issue.Title, issue.Body)

	if len(history) > 0 {
		b.WriteString("\nPrevious conversation:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nNext task:\n%s\n", *issue.Comment)
	return b.String()
}
