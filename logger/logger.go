package logger

import (
	"sync"
	"sync/atomic"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Logger is one node of the hierarchy. Loggers are created through a
// Registry (usually via the package-level GetLogger) and live for
// the life of the process; all methods are safe for concurrent use.
type Logger struct {
	name     string
	parent   *Logger
	registry *Registry

	// level is the explicit level, core.NotSet when inheriting.
	level atomic.Int32
	// effective caches the resolved level packed with the registry
	// generation it was computed under: generation<<8 | level. Zero
	// means not cached.
	effective atomic.Uint64

	propagate atomic.Bool

	mu       sync.RWMutex
	handlers []handler.Handler
	filters  []core.Filter
}

func newLogger(r *Registry, name string, parent *Logger) *Logger {
	l := &Logger{name: name, parent: parent, registry: r}
	l.propagate.Store(true)
	return l
}

// Name returns the logger's dotted name; the root logger's name is
// the empty string.
func (l *Logger) Name() string {
	return l.name
}

// Parent returns the parent logger, or nil for the root.
func (l *Logger) Parent() *Logger {
	return l.parent
}

// SetLevel sets the logger's explicit level. core.NotSet restores
// inheritance from the parent. The change is visible to the whole
// subtree immediately.
func (l *Logger) SetLevel(level core.Level) {
	l.level.Store(int32(level))
	l.registry.invalidate()
}

// Level returns the explicit level, core.NotSet when inheriting.
func (l *Logger) Level() core.Level {
	return core.Level(l.level.Load())
}

// EffectiveLevel resolves the level this logger filters at: its own
// explicit level, or the nearest ancestor's, or WarningLevel when no
// logger on the path has one. The result is cached until any logger's
// level changes.
func (l *Logger) EffectiveLevel() core.Level {
	gen := l.registry.generation.Load()
	if packed := l.effective.Load(); packed>>8 == gen {
		return core.Level(packed & 0xff)
	}

	eff := core.WarningLevel
	for cur := l; cur != nil; cur = cur.parent {
		if lv := core.Level(cur.level.Load()); lv != core.NotSet {
			eff = lv
			break
		}
	}
	l.effective.Store(gen<<8 | uint64(eff))
	return eff
}

// EnabledFor reports whether a record at level would pass the
// logger's effective level gate.
func (l *Logger) EnabledFor(level core.Level) bool {
	return level >= l.EffectiveLevel()
}

// SetPropagate controls whether records accepted here continue to
// ancestor handlers. Propagation is on by default.
func (l *Logger) SetPropagate(propagate bool) {
	l.propagate.Store(propagate)
}

// Propagate reports whether propagation is enabled.
func (l *Logger) Propagate() bool {
	return l.propagate.Load()
}

// AddHandler attaches a handler to this logger.
func (l *Logger) AddHandler(h handler.Handler) {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
}

// RemoveHandler detaches a previously attached handler. The handler
// is not closed.
func (l *Logger) RemoveHandler(h handler.Handler) {
	l.mu.Lock()
	for i, existing := range l.handlers {
		if existing == h {
			// Copy on write: dispatch may be iterating the old slice.
			next := make([]handler.Handler, 0, len(l.handlers)-1)
			next = append(next, l.handlers[:i]...)
			next = append(next, l.handlers[i+1:]...)
			l.handlers = next
			break
		}
	}
	l.mu.Unlock()
}

// Handlers returns a snapshot of the attached handlers.
func (l *Logger) Handlers() []handler.Handler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]handler.Handler, len(l.handlers))
	copy(out, l.handlers)
	return out
}

// AddFilter appends a filter to the logger's chain. A rejecting
// logger filter suppresses the record entirely, including for
// ancestor handlers.
func (l *Logger) AddFilter(f core.Filter) {
	l.mu.Lock()
	l.filters = append(l.filters, f)
	l.mu.Unlock()
}

// RemoveFilter removes the first occurrence of f from the chain.
// Func-typed filters such as core.FilterFunc match by code pointer.
func (l *Logger) RemoveFilter(f core.Filter) {
	l.mu.Lock()
	for i, existing := range l.filters {
		if core.SameFilter(existing, f) {
			next := make([]core.Filter, 0, len(l.filters)-1)
			next = append(next, l.filters[:i]...)
			next = append(next, l.filters[i+1:]...)
			l.filters = next
			break
		}
	}
	l.mu.Unlock()
}

// Options carries the optional parts of a log call.
type Options struct {
	// Extra attaches ordered fields the formatter can substitute by
	// key.
	Extra []core.Field
	// Err attaches an error rendered after the message.
	Err error
	// Stack captures the calling goroutine's stack.
	Stack bool
}

// Debug logs at DebugLevel. args are fmt operands for format; with
// no args the format string is the literal message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(core.DebugLevel, format, args, nil)
}

// Info logs at InfoLevel.
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(core.InfoLevel, format, args, nil)
}

// Warning logs at WarningLevel.
func (l *Logger) Warning(format string, args ...interface{}) {
	l.log(core.WarningLevel, format, args, nil)
}

// Error logs at ErrorLevel.
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(core.ErrorLevel, format, args, nil)
}

// Critical logs at CriticalLevel.
func (l *Logger) Critical(format string, args ...interface{}) {
	l.log(core.CriticalLevel, format, args, nil)
}

// Log logs at an arbitrary level.
func (l *Logger) Log(level core.Level, format string, args ...interface{}) {
	l.log(level, format, args, nil)
}

// LogWith logs with options: extra fields, an attached error, or a
// captured stack.
func (l *Logger) LogWith(level core.Level, opts Options, format string, args ...interface{}) {
	l.log(level, format, args, &opts)
}

// Exception logs err at ErrorLevel with a captured stack, mirroring
// the common log-an-error-where-caught pattern.
func (l *Logger) Exception(err error, format string, args ...interface{}) {
	l.log(core.ErrorLevel, format, args, &Options{Err: err, Stack: true})
}

// log builds and dispatches one record. The level gate runs first so
// a suppressed call allocates nothing. Callers must be exactly one
// frame above log for the captured caller to be the user's call site.
func (l *Logger) log(level core.Level, format string, args []interface{}, opts *Options) {
	if level < l.EffectiveLevel() {
		return
	}

	rec := core.NewRecord(l.name, level, 3, format, args)
	if opts != nil {
		rec.Extra = opts.Extra
		rec.Err = opts.Err
		if opts.Stack {
			rec.Stack = core.CaptureStack()
		}
	}
	l.dispatch(rec)
}

// dispatch runs the logger's filter chain and fans the record out to
// this logger's handlers and every ancestor's, stopping where
// propagation is disabled. Ancestor levels and filters are not
// consulted; each handler applies its own gate inside Emit.
func (l *Logger) dispatch(rec *core.Record) {
	l.mu.RLock()
	filters := l.filters
	l.mu.RUnlock()
	if !core.RunFilters(filters, rec) {
		return
	}

	for cur := l; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		handlers := cur.handlers
		cur.mu.RUnlock()
		for _, h := range handlers {
			h.Emit(rec)
		}
		if !cur.propagate.Load() {
			return
		}
	}
}
