/*
Package domain contains the core domain models of the autoshell task loop.

It defines the transcript exchanged with the completion endpoint, the commands
extracted from model output, the outcomes produced by executing them, and the
events broadcast to observers while a task runs. This package is kept pure and
free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Message / Session: the ordered transcript of one task run.
  - Command: a shell script fragment proposed by the model.
  - CommandOutcome / RunResult: what happened when commands were executed.
  - TaskEvent: a named, typed notification published while a task runs.
*/
package domain
