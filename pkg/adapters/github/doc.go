// Package github turns GitHub issue webhooks into autoshell tasks.
//
// Only "issues" and "issue_comment" deliveries are handled. A delivery is
// acted upon when its signature verifies, the sender and organization are
// allowed, and the issue is open; closing an issue drops its cached history.
// Comments steer the conversation: "retry" restarts the issue task, "push"
// publishes the checkout, anything else becomes a follow-up instruction.
package github
