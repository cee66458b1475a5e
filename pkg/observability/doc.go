/*
Package observability exposes Prometheus metrics for the Scribe coordinator.

Metrics plug into the coordinator as lifecycle hooks, wrap the checklist
emitter to time deliveries, and count intake outcomes per source.
*/
package observability
