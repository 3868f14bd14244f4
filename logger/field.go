package logger

import (
	"time"

	"github.com/cascadelog/cascade/core"
)

// Field helper functions for convenience

// String creates a string field
func String(key, val string) core.Field {
	return core.String(key, val)
}

// Int creates an int field
func Int(key string, val int) core.Field {
	return core.Int(key, val)
}

// Int64 creates an int64 field
func Int64(key string, val int64) core.Field {
	return core.Int64(key, val)
}

// Float64 creates a float64 field
func Float64(key string, val float64) core.Field {
	return core.Float64(key, val)
}

// Bool creates a bool field
func Bool(key string, val bool) core.Field {
	return core.Bool(key, val)
}

// Time creates a time field
func Time(key string, val time.Time) core.Field {
	return core.Time(key, val)
}

// Duration creates a duration field
func Duration(key string, val time.Duration) core.Field {
	return core.Duration(key, val)
}

// Err creates an error field
func Err(err error) core.Field {
	return core.Err(err)
}

// Any creates a field with any value
func Any(key string, val interface{}) core.Field {
	return core.Any(key, val)
}
