package ports

import "github.com/codrblog/autoshell/pkg/domain"

// Publisher delivers task events to whoever is watching a task.
// Delivery is best effort: Publish reports whether anybody was listening.
type Publisher interface {
	Publish(taskID string, name domain.EventName, payload any) bool
	Complete(taskID string)
}
