// Package core defines the shared types used across the cascade engine.
//
// It provides the Level type for severity gating, the Record type that
// represents a single log event, the Field type for typed key-value
// extras, and the Filter predicate applied by loggers and handlers.
//
// A Record is built once per accepted log call and handed to every
// handler in the hierarchy as a shared read-only value. Identity fields
// never change after construction; the final message text and the
// rendered error text are computed lazily and memoized so that
// concurrent handlers pay the formatting cost exactly once.
//
// Field encodes values into fixed-size numeric fields (Int64, Float64)
// wherever possible so that common types like int, bool, and time.Time
// never escape to the heap. The Any field exists as a fallback for
// arbitrary and nested values but will cause an allocation.
package core
