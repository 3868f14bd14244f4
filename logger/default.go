package logger

import (
	"fmt"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/formatter"
	"github.com/cascadelog/cascade/handler/filehandler"
	"github.com/cascadelog/cascade/handler/streamhandler"
)

// defaultRegistry backs the package-level functions. Applications
// needing an isolated hierarchy, such as tests, can create their own
// Registry.
var defaultRegistry = NewRegistry()

// GetLogger returns the unique logger for name in the default
// hierarchy, creating it and its ancestors on first use. The empty
// name returns the root logger.
func GetLogger(name string) *Logger {
	return defaultRegistry.Logger(name)
}

// Root returns the default hierarchy's root logger.
func Root() *Logger {
	return defaultRegistry.Root()
}

// FlushAll flushes every handler attached anywhere in the default
// hierarchy.
func FlushAll() error {
	return defaultRegistry.FlushAll()
}

// Shutdown flushes and closes every handler in the default hierarchy.
// Call it before process exit so batching handlers drain their
// queues.
func Shutdown() error {
	return defaultRegistry.Shutdown()
}

// Debug logs at DebugLevel on the root logger.
func Debug(format string, args ...interface{}) {
	defaultRegistry.root.log(core.DebugLevel, format, args, nil)
}

// Info logs at InfoLevel on the root logger.
func Info(format string, args ...interface{}) {
	defaultRegistry.root.log(core.InfoLevel, format, args, nil)
}

// Warning logs at WarningLevel on the root logger.
func Warning(format string, args ...interface{}) {
	defaultRegistry.root.log(core.WarningLevel, format, args, nil)
}

// Error logs at ErrorLevel on the root logger.
func Error(format string, args ...interface{}) {
	defaultRegistry.root.log(core.ErrorLevel, format, args, nil)
}

// Critical logs at CriticalLevel on the root logger.
func Critical(format string, args ...interface{}) {
	defaultRegistry.root.log(core.CriticalLevel, format, args, nil)
}

// Config configures the root logger in one call, in the spirit of
// the classic basic-config entry point.
type Config struct {
	// Level is the root logger's level; core.NotSet leaves it alone.
	Level core.Level
	// Template, Style and DateFormat build the handler's formatter.
	// An empty Template uses the default "LEVEL:name:message" layout.
	Template   string
	Style      formatter.Style
	DateFormat string
	// Filename, when set, logs to a file in FileMode instead of a
	// stderr stream handler.
	Filename string
	FileMode filehandler.Mode
	// Force removes (and closes) the root logger's existing handlers
	// first. Without it, Configure on an already configured root only
	// applies Level.
	Force bool
}

// Configure attaches a stream or file handler to the root logger and
// sets its level. Like its namesake in other logging systems it is a
// no-op on a root that already has handlers, unless Force is set.
func Configure(cfg Config) error {
	root := defaultRegistry.root

	if cfg.Force {
		for _, h := range root.Handlers() {
			root.RemoveHandler(h)
			h.Close()
		}
	}

	if len(root.Handlers()) == 0 {
		var f formatter.Formatter
		if cfg.Template != "" {
			pf, err := formatter.New(cfg.Template, cfg.Style, cfg.DateFormat)
			if err != nil {
				return fmt.Errorf("configure root logger: %w", err)
			}
			f = pf
		}

		if cfg.Filename != "" {
			h, err := filehandler.New(cfg.Filename, cfg.FileMode)
			if err != nil {
				return fmt.Errorf("configure root logger: %w", err)
			}
			if f != nil {
				h.SetFormatter(f)
			}
			root.AddHandler(h)
		} else {
			h := streamhandler.New(streamhandler.Stderr)
			if f != nil {
				h.SetFormatter(f)
			}
			root.AddHandler(h)
		}
	}

	if cfg.Level != core.NotSet {
		root.SetLevel(cfg.Level)
	}
	return nil
}
