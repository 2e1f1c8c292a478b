/*
Package observability exposes task runs to Prometheus.

Metrics are fed by the orchestrator's lifecycle hooks and registered on a
private registry, so tests and embedders can create as many as they need.
*/
package observability
