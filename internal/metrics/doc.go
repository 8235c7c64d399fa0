// Package metrics exposes Prometheus instrumentation for the generation
// pipeline: run and topic outcomes, LLM call latency, task lifecycle and
// HTTP traffic. Every Collector owns its registry, so tests can create as
// many as they need.
package metrics
