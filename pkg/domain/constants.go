package domain

const (
	// SeedMessages is the number of messages a freshly built session starts with
	// (preamble, acknowledgement, task). They are not part of the returned transcript.
	SeedMessages = 3

	// Acknowledgement is the assistant reply inserted between preamble and task.
	Acknowledgement = "Yes, I'm ready! What's the task?"

	// NoOutput replaces empty stdout when results are reported back to the model.
	NoOutput = "no output"

	// ShellPrelude is prepended to fenced commands so multi-line scripts abort eagerly.
	ShellPrelude = "set -e\n"
)
