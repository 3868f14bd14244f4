package formatter

import (
	"bytes"
	"sync"

	"github.com/cascadelog/cascade/core"
)

// Formatter defines the interface for record formatters. The returned
// bytes never include a trailing newline; handlers terminate lines.
type Formatter interface {
	// Format formats a record into bytes
	Format(record *core.Record) ([]byte, error)
}

// BufferFormatter is an optional interface that formatters can
// implement to format directly into a caller-provided buffer,
// avoiding the intermediate byte slice allocation.
type BufferFormatter interface {
	// FormatRecord formats a record into the given buffer.
	FormatRecord(record *core.Record, buf *bytes.Buffer)
}

// bufferPool is a pool of bytes.Buffer to reduce allocations
var bufferPool = &sync.Pool{
	New: func() interface{} {
		b := new(bytes.Buffer)
		b.Grow(256)
		return b
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 64*1024 { // Don't keep very large buffers
		return
	}
	bufferPool.Put(buf)
}
