/*
Package session builds the transcripts task runs start from and keeps track of
the runs currently in flight.

The Builder owns the process-wide preamble; the Manager lets callers cancel a
running task by ID and serializes runs that must not overlap (for example two
webhook deliveries for the same repository issue), optionally across replicas
through a distributed locker.
*/
package session
