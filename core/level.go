package core

import (
	"fmt"
	"strings"
)

// Level represents the severity level of a log record. The numeric
// values are spaced by ten so that callers can define intermediate
// custom levels and compare them with the built-in ones.
type Level int32

const (
	// NotSet on a logger means the effective level is inherited from
	// the nearest ancestor with an explicit level.
	NotSet Level = 0
	// DebugLevel for detailed debugging information
	DebugLevel Level = 10
	// InfoLevel for general informational messages
	InfoLevel Level = 20
	// WarningLevel for warning messages (the root logger default)
	WarningLevel Level = 30
	// ErrorLevel for error messages
	ErrorLevel Level = 40
	// CriticalLevel for unrecoverable error messages
	CriticalLevel Level = 50
)

// String returns the display name of the level. Custom numeric levels
// render as "Level <n>".
func (l Level) String() string {
	switch l {
	case NotSet:
		return "NOTSET"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	case CriticalLevel:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Level %d", int32(l))
	}
}

// ParseLevel converts a level name to a Level. It accepts the aliases
// WARN for WARNING and FATAL for CRITICAL, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NOTSET":
		return NotSet, nil
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarningLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL", "CRITICAL":
		return CriticalLevel, nil
	default:
		return NotSet, fmt.Errorf("invalid log level: %q", s)
	}
}
