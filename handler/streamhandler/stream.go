package streamhandler

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Destination selects the OS stream a stream handler writes to.
type Destination int

const (
	// Stdout targets the process's standard output
	Stdout Destination = iota
	// Stderr targets the process's standard error
	Stderr
)

// StreamHandler writes one formatted line per record to a fixed
// writer. It relies on the OS's default stream buffering and swallows
// write failures.
type StreamHandler struct {
	handler.Base
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer
}

// New creates a stream handler for stdout or stderr.
func New(dest Destination) *StreamHandler {
	w := io.Writer(os.Stdout)
	if dest == Stderr {
		w = os.Stderr
	}
	return NewWriter(w)
}

// NewWriter creates a stream handler for an arbitrary writer.
func NewWriter(w io.Writer) *StreamHandler {
	return &StreamHandler{w: w}
}

// Emit formats the record and writes it as one newline-terminated
// line. Write errors are swallowed.
func (h *StreamHandler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	h.FormatInto(record, &h.buf)
	h.buf.WriteByte('\n')
	_, _ = h.w.Write(h.buf.Bytes())
}

// Flush is a no-op; the handler writes through on every record.
func (h *StreamHandler) Flush() error {
	return nil
}

// Close is a no-op; the handler does not own the stream.
func (h *StreamHandler) Close() error {
	return nil
}
