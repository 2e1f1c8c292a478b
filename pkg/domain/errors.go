package domain

import "errors"

// ErrEmptyTask is returned when a task has no text to work on.
var ErrEmptyTask = errors.New("task is empty")

// ErrEmptyCompletion is returned when the completion endpoint produced no choices.
var ErrEmptyCompletion = errors.New("completion returned no choices")

// ErrTaskNotFound is returned when a task ID is not running.
var ErrTaskNotFound = errors.New("task not found")

// ErrInvalidSignature is returned when a webhook payload fails signature verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrNotActionable is returned when a webhook event does not lead to any work.
var ErrNotActionable = errors.New("event is not actionable")
