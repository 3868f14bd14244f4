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

// RotatingFileHandler is a FileHandler variant with size-based
// rotation. When the file reaches MaxBytes after a record's flush it
// is renamed to <path>.1 (shifting existing backups up) and a fresh
// file is opened; at most BackupCount backups are kept. A BackupCount
// of zero truncates in place instead of keeping backups.
type RotatingFileHandler struct {
	handler.Base

	maxBytes    int64
	backupCount int

	mu       sync.Mutex
	file     *os.File
	bw       *bufio.Writer
	buf      bytes.Buffer
	size     int64
	closed   bool
	onError  func(error)
	filename string
}

// NewRotating opens the file in append mode and returns a rotating
// handler. Open and stat errors surface here. A maxBytes of zero
// disables rotation.
func NewRotating(path string, maxBytes int64, backupCount int) (*RotatingFileHandler, error) {
	if maxBytes < 0 {
		return nil, fmt.Errorf("rotating log file %s: negative max bytes %d", path, maxBytes)
	}
	if backupCount < 0 {
		return nil, fmt.Errorf("rotating log file %s: negative backup count %d", path, backupCount)
	}

	file, err := openLogFile(path, Append)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file %s: %w", path, err)
	}

	return &RotatingFileHandler{
		maxBytes:    maxBytes,
		backupCount: backupCount,
		file:        file,
		bw:          bufio.NewWriter(file),
		size:        info.Size(),
		filename:    path,
	}, nil
}

// SetErrorCallback registers a callback receiving swallowed write,
// flush and rotation errors.
func (h *RotatingFileHandler) SetErrorCallback(cb func(error)) {
	h.mu.Lock()
	h.onError = cb
	h.mu.Unlock()
}

// Emit formats, writes and flushes the record, then rotates if the
// file reached the size limit. I/O failures are swallowed after the
// optional error callback.
func (h *RotatingFileHandler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.buf.Reset()
	h.FormatInto(record, &h.buf)
	h.buf.WriteByte('\n')

	n, err := h.bw.Write(h.buf.Bytes())
	h.size += int64(n)
	if err != nil {
		h.reportLocked(fmt.Errorf("write %s: %w", h.filename, err))
		return
	}
	if err := h.bw.Flush(); err != nil {
		h.reportLocked(fmt.Errorf("flush %s: %w", h.filename, err))
		return
	}

	if h.maxBytes > 0 && h.size >= h.maxBytes {
		if err := h.rotateLocked(); err != nil {
			h.reportLocked(fmt.Errorf("rotate %s: %w", h.filename, err))
		}
	}
}

func (h *RotatingFileHandler) reportLocked(err error) {
	if h.onError != nil {
		h.onError(err)
	}
}

// rotateLocked performs the numeric-suffix rotation. Callers hold
// h.mu and have already flushed the writer.
func (h *RotatingFileHandler) rotateLocked() error {
	if err := h.file.Close(); err != nil {
		return err
	}

	if h.backupCount == 0 {
		file, err := os.OpenFile(h.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		h.file = file
		h.bw.Reset(file)
		h.size = 0
		return nil
	}

	// Shift existing backups up: .N-1 -> .N, ..., .1 -> .2.
	os.Remove(h.backupName(h.backupCount))
	for i := h.backupCount - 1; i >= 1; i-- {
		src := h.backupName(i)
		if _, err := os.Stat(src); err == nil {
			os.Rename(src, h.backupName(i+1))
		}
	}

	if err := os.Rename(h.filename, h.backupName(1)); err != nil {
		// Keep logging into the original file rather than lose records.
		file, openErr := os.OpenFile(h.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if openErr != nil {
			return fmt.Errorf("rename failed (%v) and reopen failed: %w", err, openErr)
		}
		h.file = file
		h.bw.Reset(file)
		return err
	}

	file, err := os.OpenFile(h.filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	h.file = file
	h.bw.Reset(file)
	h.size = 0
	return nil
}

func (h *RotatingFileHandler) backupName(i int) string {
	return fmt.Sprintf("%s.%d", h.filename, i)
}

// Flush forces buffered output to the file.
func (h *RotatingFileHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	return h.bw.Flush()
}

// Close flushes, syncs and closes the file. Close is idempotent.
func (h *RotatingFileHandler) Close() error {
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
