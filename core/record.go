package core

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var processID = os.Getpid()

// Record represents a single log event. Identity fields are set once
// at construction and never mutated afterwards; handlers across the
// logger hierarchy share one *Record per log call.
type Record struct {
	// Name is the dotted name of the originating logger.
	Name string
	// Level is the severity the record was logged at.
	Level Level
	// Format is the raw message format; Args are its fmt operands.
	// Use Message to obtain the final text.
	Format string
	Args   []interface{}

	// Time is the creation timestamp.
	Time time.Time
	// Caller identifies the source location of the log call.
	Caller CallerInfo
	// Process is the operating system process id.
	Process int
	// Goroutine identifies the logging goroutine; GoroutineName is
	// the label registered via SetGoroutineName, if any.
	Goroutine     uint64
	GoroutineName string

	// Err is the error captured with the record, if any.
	Err error
	// Stack is the captured stack text, if requested.
	Stack string

	// Extra holds ordered caller-supplied fields.
	Extra []Field

	msgOnce sync.Once
	msg     string
	errOnce sync.Once
	errText string
}

// NewRecord builds a record for a log call. The timestamp, caller,
// process and goroutine identity are captured here so every handler
// observes identical values.
func NewRecord(name string, level Level, skip int, format string, args []interface{}) *Record {
	return &Record{
		Name:          name,
		Level:         level,
		Format:        format,
		Args:          args,
		Time:          time.Now(),
		Caller:        GetCaller(skip + 1),
		Process:       processID,
		Goroutine:     GoroutineID(),
		GoroutineName: goroutineName(),
	}
}

// Message returns the final message text, applying the fmt operands
// on first access and memoizing the result.
func (r *Record) Message() string {
	r.msgOnce.Do(func() {
		if len(r.Args) == 0 {
			r.msg = r.Format
		} else {
			r.msg = fmt.Sprintf(r.Format, r.Args...)
		}
	})
	return r.msg
}

// ErrText returns the rendered error and stack text, or "" when the
// record carries neither. The rendering is memoized.
func (r *Record) ErrText() string {
	r.errOnce.Do(func() {
		switch {
		case r.Err != nil && r.Stack != "":
			r.errText = r.Err.Error() + "\n" + r.Stack
		case r.Err != nil:
			r.errText = r.Err.Error()
		case r.Stack != "":
			r.errText = r.Stack
		}
	})
	return r.errText
}

// Msecs returns the sub-second part of the timestamp in milliseconds.
func (r *Record) Msecs() int {
	return r.Time.Nanosecond() / int(time.Millisecond)
}

// Created returns the timestamp as fractional seconds since the epoch.
func (r *Record) Created() float64 {
	return float64(r.Time.UnixNano()) / float64(time.Second)
}

// Lookup finds an extra field by key. The second return is false when
// no field with that key exists.
func (r *Record) Lookup(key string) (Field, bool) {
	for _, f := range r.Extra {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}
