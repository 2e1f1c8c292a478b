package github

import (
	"encoding/json"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v57/github"

	"github.com/codrblog/autoshell/pkg/domain"
)

// Supported webhook event types.
const (
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
)

// Comment commands.
const (
	CommandRetry = "retry"
	CommandPush  = "push"
)

// Issue is the part of a webhook delivery the translator works with.
type Issue struct {
	Action       string
	Sender       string
	Organization string

	Number int
	Title  string
	Body   string
	URL    string
	State  string

	Repository Repository

	// Comment is the body of the comment that triggered the delivery, if any.
	Comment *string
}

// Repository identifies the repository an issue belongs to.
type Repository struct {
	Name     string
	FullName string
	URL      string
	CloneURL string
}

// Closed reports whether the delivery closes the issue.
func (i *Issue) Closed() bool {
	return i.State == "closed" || i.Action == "closed"
}

// ParseEvent decodes a verified payload. Event types other than issues and
// issue comments yield domain.ErrNotActionable.
func ParseEvent(eventType string, payload []byte) (*Issue, error) {
	if eventType != EventIssues && eventType != EventIssueComment {
		return nil, fmt.Errorf("%w: event type %q", domain.ErrNotActionable, eventType)
	}

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		return nil, fmt.Errorf("parsing webhook: %w", err)
	}

	var (
		issue  *gh.Issue
		repo   *gh.Repository
		out    = &Issue{}
		sender *gh.User
	)
	switch e := event.(type) {
	case *gh.IssuesEvent:
		out.Action = e.GetAction()
		issue, repo, sender = e.GetIssue(), e.GetRepo(), e.GetSender()
	case *gh.IssueCommentEvent:
		out.Action = e.GetAction()
		issue, repo, sender = e.GetIssue(), e.GetRepo(), e.GetSender()
		body := e.GetComment().GetBody()
		out.Comment = &body
	default:
		return nil, fmt.Errorf("%w: unexpected payload %T", domain.ErrNotActionable, event)
	}

	out.Sender = sender.GetLogin()
	out.Organization = organization(payload, repo)
	out.Number = issue.GetNumber()
	out.Title = issue.GetTitle()
	out.Body = strings.ReplaceAll(issue.GetBody(), "\r\n", "\n")
	out.URL = issue.GetHTMLURL()
	out.State = issue.GetState()
	out.Repository = Repository{
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
		URL:      repo.GetHTMLURL(),
		CloneURL: repo.GetCloneURL(),
	}
	return out, nil
}

// organization reads the delivery's organization login, falling back to the
// repository owner for deliveries that carry none.
func organization(payload []byte, repo *gh.Repository) string {
	var envelope struct {
		Organization *struct {
			Login string `json:"login"`
		} `json:"organization"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Organization != nil {
		return envelope.Organization.Login
	}
	return repo.GetOwner().GetLogin()
}
