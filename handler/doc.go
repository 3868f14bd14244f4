// Package handler defines the sink abstraction of the cascade engine
// and the shared machinery its implementations build on.
//
// A Handler owns a level threshold, a filter chain, and an optional
// formatter. Emit applies the handler's own gate before any I/O:
// a record rejected here never reaches the sink, while sibling
// handlers and ancestor propagation proceed unaffected.
//
// Base carries that common state and is embedded by the concrete
// implementations in the subpackages:
//
//   - streamhandler: stdout/stderr and arbitrary io.Writer sinks
//   - filehandler: buffered append-mode files, with a size-rotating
//     variant
//   - httphandler: JSON batch delivery to an HTTP endpoint
//   - otlphandler: OTLP/HTTP protobuf batch delivery
//   - memoryhandler: in-memory capture for tests and tooling
//
// Batcher implements the background-worker discipline shared by the
// network handlers: a bounded queue with per-level OverflowPolicy,
// one worker goroutine draining on size or interval, synchronous
// Flush, and a drain-then-join Close that never loses an accepted
// record on normal shutdown.
package handler
