package filehandler

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Mode selects how the log file is opened.
type Mode int

const (
	// Append keeps existing content (the default for log files)
	Append Mode = iota
	// Truncate discards existing content at open
	Truncate
)

// FileHandler appends one formatted line per record to a file. The
// bufio layer exists to coalesce the line and its newline into one
// write; every record is flushed before Emit returns.
type FileHandler struct {
	handler.Base

	mu       sync.Mutex
	file     *os.File
	bw       *bufio.Writer
	buf      bytes.Buffer
	closed   bool
	onError  func(error)
	filename string
}

// New opens the file and returns a handler writing to it. Open
// errors, including a missing or unwritable directory, surface here.
func New(path string, mode Mode) (*FileHandler, error) {
	file, err := openLogFile(path, mode)
	if err != nil {
		return nil, err
	}
	return &FileHandler{
		file:     file,
		bw:       bufio.NewWriter(file),
		filename: path,
	}, nil
}

func openLogFile(path string, mode Mode) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == Truncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

// SetErrorCallback registers a callback receiving swallowed write and
// flush errors. A nil callback restores silent swallowing.
func (h *FileHandler) SetErrorCallback(cb func(error)) {
	h.mu.Lock()
	h.onError = cb
	h.mu.Unlock()
}

// Emit formats and writes the record, then flushes. I/O failures are
// swallowed after the optional error callback.
func (h *FileHandler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.writeLocked(record)
}

// writeLocked writes one record and flushes. Callers hold h.mu.
func (h *FileHandler) writeLocked(record *core.Record) {
	h.buf.Reset()
	h.FormatInto(record, &h.buf)
	h.buf.WriteByte('\n')

	if _, err := h.bw.Write(h.buf.Bytes()); err != nil {
		h.reportLocked(fmt.Errorf("write %s: %w", h.filename, err))
		return
	}
	if err := h.bw.Flush(); err != nil {
		h.reportLocked(fmt.Errorf("flush %s: %w", h.filename, err))
	}
}

func (h *FileHandler) reportLocked(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}

// Flush forces buffered output to the file.
func (h *FileHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	return h.bw.Flush()
}

// Close flushes, syncs and closes the file. Close is idempotent.
func (h *FileHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	flushErr := h.bw.Flush()
	syncErr := h.file.Sync()
	closeErr := h.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
