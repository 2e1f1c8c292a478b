package domain

import (
	"encoding/json"
	"errors"
)

// Command is a shell script fragment extracted from model output. It may span multiple lines.
type Command = string

// ExecResult is the raw report of the execution collaborator for one command.
type ExecResult struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Succeeded bool
	Err       error
}

// CommandOutcome is the result of executing one command, in input order.
type CommandOutcome struct {
	Command   Command `json:"command"`
	ExitCode  int     `json:"exitCode"`
	Stdout    string  `json:"stdout"`
	Stderr    string  `json:"stderr"`
	Succeeded bool    `json:"succeeded"`
	Err       error   `json:"-"`
}

// Failed reports a true failure: not successful and a non-zero exit code.
func (o CommandOutcome) Failed() bool {
	return !o.Succeeded && o.ExitCode != 0
}

// ErrorText returns the error message if present, otherwise stderr.
func (o CommandOutcome) ErrorText() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return o.Stderr
}

// MarshalJSON renders Err as an optional string field.
func (o CommandOutcome) MarshalJSON() ([]byte, error) {
	type plain CommandOutcome
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(o)}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores Err from its string form.
func (o *CommandOutcome) UnmarshalJSON(data []byte) error {
	type plain CommandOutcome
	in := struct {
		*plain
		Error string `json:"error,omitempty"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Error != "" {
		o.Err = errors.New(in.Error)
	}
	return nil
}

// RunResult is the structured outcome of running a command sequence.
// OK is false iff the last outcome is a true failure.
type RunResult struct {
	OK       bool             `json:"ok"`
	Outcomes []CommandOutcome `json:"outcomes"`
}

// Last returns the last produced outcome. ok is false when nothing ran.
func (r RunResult) Last() (CommandOutcome, bool) {
	if len(r.Outcomes) == 0 {
		return CommandOutcome{}, false
	}
	return r.Outcomes[len(r.Outcomes)-1], true
}
