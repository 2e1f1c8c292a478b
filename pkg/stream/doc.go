// Package stream fans task events out to the observers watching a task.
//
// Events are framed as Server-Sent Events (`event: <name>\ndata: <json>\n\n`)
// regardless of the sink, so the HTTP surface and the CLI print the same bytes.
package stream
