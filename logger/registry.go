package logger

import (
	"sync"
	"sync/atomic"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Registry owns one logger hierarchy. Logger returns the unique
// instance per name; two goroutines asking for the same name always
// receive the same *Logger. The zero Registry is not usable, call
// NewRegistry.
type Registry struct {
	loggers sync.Map // string -> *Logger
	root    *Logger

	// generation invalidates every cached effective level. It is
	// bumped whenever any logger's explicit level changes, which is
	// rare next to the per-call cache hits.
	generation atomic.Uint64
}

// NewRegistry creates a hierarchy whose root logger is set to
// WarningLevel.
func NewRegistry() *Registry {
	r := &Registry{}
	r.root = newLogger(r, "", nil)
	r.root.level.Store(int32(core.WarningLevel))
	r.generation.Store(1)
	return r
}

// Root returns the root logger.
func (r *Registry) Root() *Logger {
	return r.root
}

// Logger returns the logger for name, creating it and any missing
// ancestors. The empty name and "root" both resolve to the root
// logger. Creation is eager: asking for "a.b.c" materializes "a" and
// "a.b" as well, so a later SetLevel on "a.b" is observed by "a.b.c"
// immediately.
func (r *Registry) Logger(name string) *Logger {
	if name == "" || name == "root" {
		return r.root
	}
	if v, ok := r.loggers.Load(name); ok {
		return v.(*Logger)
	}

	parent := r.root
	for i := 0; i <= len(name); i++ {
		if i < len(name) && name[i] != '.' {
			continue
		}
		prefix := name[:i]
		if prefix == "" {
			continue
		}
		v, _ := r.loggers.LoadOrStore(prefix, newLogger(r, prefix, parent))
		parent = v.(*Logger)
	}
	return parent
}

// invalidate discards every cached effective level.
func (r *Registry) invalidate() {
	r.generation.Add(1)
}

// Range calls fn for the root logger and every named logger, stopping
// early when fn returns false. Iteration order is unspecified.
func (r *Registry) Range(fn func(*Logger) bool) {
	if !fn(r.root) {
		return
	}
	r.loggers.Range(func(_, v interface{}) bool {
		return fn(v.(*Logger))
	})
}

// allHandlers collects every attached handler exactly once, by
// identity. A handler shared between loggers is returned once.
func (r *Registry) allHandlers() []handler.Handler {
	seen := make(map[handler.Handler]struct{})
	var out []handler.Handler
	r.Range(func(l *Logger) bool {
		for _, h := range l.Handlers() {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
		return true
	})
	return out
}

// FlushAll flushes every handler attached anywhere in the hierarchy
// and returns the first error encountered.
func (r *Registry) FlushAll() error {
	var first error
	for _, h := range r.allHandlers() {
		if err := h.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Shutdown flushes and closes every handler in the hierarchy. Each
// handler is closed exactly once even when attached to several
// loggers. Returns the first error encountered.
func (r *Registry) Shutdown() error {
	var first error
	for _, h := range r.allHandlers() {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
