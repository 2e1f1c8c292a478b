/*
Package orchestrator runs the task loop: ask the model, extract the commands it
proposes, execute them, fold the results back into the transcript and repeat.

A run stops when the model answers without commands (halt), when its failure
budget is used up, or when its context is canceled. Whatever the exit path, the
transcript produced after the seed messages is published as a history event and
returned to the caller as JSON.

Progress is reported twice: as task events for stream observers (next, results,
error, halt, cancel, history) and through domain.LifecycleHooks for logs and
metrics.
*/
package orchestrator
