package memoryhandler

import (
	"strings"
	"sync"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Tuple is the (name, level, message) summary of one captured record.
type Tuple struct {
	Name    string
	Level   core.Level
	Message string
}

// Handler retains every accepted record in order.
type Handler struct {
	handler.Base

	mu      sync.Mutex
	records []*core.Record
}

// New returns an empty capture handler.
func New() *Handler {
	return &Handler{}
}

// Emit captures the record after the level gate and filter chain.
func (h *Handler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}
	h.mu.Lock()
	h.records = append(h.records, record)
	h.mu.Unlock()
}

// Flush is a no-op.
func (h *Handler) Flush() error { return nil }

// Close discards the captured records.
func (h *Handler) Close() error {
	h.Reset()
	return nil
}

// Reset discards the captured records.
func (h *Handler) Reset() {
	h.mu.Lock()
	h.records = nil
	h.mu.Unlock()
}

// Len returns the number of captured records.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Records returns a copy of the captured records in emission order.
func (h *Handler) Records() []*core.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*core.Record, len(h.records))
	copy(out, h.records)
	return out
}

// Tuples summarizes the captured records for compact assertions.
func (h *Handler) Tuples() []Tuple {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Tuple, len(h.records))
	for i, rec := range h.records {
		out[i] = Tuple{Name: rec.Name, Level: rec.Level, Message: rec.Message()}
	}
	return out
}

// Text renders the captured records through the handler's formatter,
// one line per record.
func (h *Handler) Text() string {
	var sb strings.Builder
	for _, rec := range h.Records() {
		sb.Write(h.FormatRecord(rec))
		sb.WriteByte('\n')
	}
	return sb.String()
}
