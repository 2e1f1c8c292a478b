/*
Package ports defines the driven ports (interfaces) of the autoshell orchestrator.

These interfaces decouple the task loop from the outside world: the language
model, the shell, the event stream, the issue history cache and the git checkout.

# Key Interfaces

  - Completer: turns an ordered transcript into generated text.
  - Executor: runs a single shell command and reports its raw outcome.
  - Publisher: broadcasts task events to live observers.
  - HistoryStore: caches conversations per repository issue.
  - Repository: prepares and pushes repository checkouts.
  - DistributedLocker: coordinates per-key work across replicas.
*/
package ports
