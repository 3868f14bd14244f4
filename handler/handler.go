package handler

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/formatter"
)

// Handler is the sink abstraction of the dispatch pipeline. Handlers
// are identified by instance, never by name, and own their I/O state
// exclusively.
type Handler interface {
	// Emit processes one record. It applies the handler's own level
	// gate and filter chain before any formatting or I/O; emission
	// failures are swallowed and must never reach the caller.
	Emit(record *core.Record)

	// Flush forces buffered output to the sink, blocking until done.
	Flush() error

	// Close flushes remaining output and releases the handler's
	// resources. Close is idempotent.
	Close() error

	// SetLevel sets the handler's level threshold.
	SetLevel(level core.Level)

	// SetFormatter replaces the handler's formatter.
	SetFormatter(f formatter.Formatter)

	// AddFilter appends a filter to the handler's chain.
	AddFilter(f core.Filter)

	// RemoveFilter removes a previously added filter.
	RemoveFilter(f core.Filter)
}

// Base carries the state every handler shares: an atomic level
// threshold, an atomic flush level, a filter chain, and an optional
// formatter. The zero value gates nothing (level NotSet) and flushes
// eagerly from ErrorLevel up.
type Base struct {
	level atomic.Int32
	// flushLevel stores the set level offset by one; zero means unset
	// so the zero Base defaults to ErrorLevel without initialization.
	flushLevel atomic.Int32

	mu        sync.RWMutex
	filters   []core.Filter
	formatter formatter.Formatter
	bufFmt    formatter.BufferFormatter
}

// SetLevel sets the level threshold.
func (b *Base) SetLevel(level core.Level) {
	b.level.Store(int32(level))
}

// Level returns the current level threshold.
func (b *Base) Level() core.Level {
	return core.Level(b.level.Load())
}

// SetFlushLevel sets the level at or above which a single record
// forces an immediate flush.
func (b *Base) SetFlushLevel(level core.Level) {
	b.flushLevel.Store(int32(level) + 1)
}

// FlushLevel returns the current flush level, ErrorLevel until one is
// set.
func (b *Base) FlushLevel() core.Level {
	if v := b.flushLevel.Load(); v != 0 {
		return core.Level(v - 1)
	}
	return core.ErrorLevel
}

// SetFormatter replaces the handler's formatter.
func (b *Base) SetFormatter(f formatter.Formatter) {
	b.mu.Lock()
	b.formatter = f
	b.bufFmt, _ = f.(formatter.BufferFormatter)
	b.mu.Unlock()
}

// AddFilter appends a filter to the chain.
func (b *Base) AddFilter(f core.Filter) {
	b.mu.Lock()
	b.filters = append(b.filters, f)
	b.mu.Unlock()
}

// RemoveFilter removes the first occurrence of f from the chain.
// Func-typed filters such as core.FilterFunc match by code pointer.
func (b *Base) RemoveFilter(f core.Filter) {
	b.mu.Lock()
	for i, existing := range b.filters {
		if core.SameFilter(existing, f) {
			// Copy on write: Accepts may be iterating the old slice.
			next := make([]core.Filter, 0, len(b.filters)-1)
			next = append(next, b.filters[:i]...)
			next = append(next, b.filters[i+1:]...)
			b.filters = next
			break
		}
	}
	b.mu.Unlock()
}

// Accepts reports whether the record passes the handler's level gate
// and filter chain.
func (b *Base) Accepts(record *core.Record) bool {
	if int32(record.Level) < b.level.Load() {
		return false
	}
	b.mu.RLock()
	filters := b.filters
	b.mu.RUnlock()
	return core.RunFilters(filters, record)
}

// FormatRecord renders the record through the handler's formatter,
// falling back to the package default when none is set. The result
// carries no trailing newline.
func (b *Base) FormatRecord(record *core.Record) []byte {
	b.mu.RLock()
	f := b.formatter
	b.mu.RUnlock()
	if f == nil {
		f = formatter.Default()
	}
	out, err := f.Format(record)
	if err != nil {
		return []byte(record.Message())
	}
	return out
}

// FormatInto renders the record into buf, using the formatter's
// BufferFormatter fast path when it has one.
func (b *Base) FormatInto(record *core.Record, buf *bytes.Buffer) {
	b.mu.RLock()
	f, bf := b.formatter, b.bufFmt
	b.mu.RUnlock()
	if f == nil {
		f = formatter.Default()
		bf = f.(formatter.BufferFormatter)
	}
	if bf != nil {
		bf.FormatRecord(record, buf)
		return
	}
	out, err := f.Format(record)
	if err != nil {
		buf.WriteString(record.Message())
		return
	}
	buf.Write(out)
}
