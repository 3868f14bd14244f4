package httphandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

// Config configures an HTTP handler. URL is required; everything else
// has a usable default.
type Config struct {
	// URL is the endpoint receiving POSTed JSON batches.
	URL string
	// Headers are added to every request. Content-Type is always
	// application/json and cannot be overridden.
	Headers map[string]string
	// Timeout bounds each request (default 30s). Ignored when Client
	// is set.
	Timeout time.Duration
	// Client replaces the default HTTP client.
	Client *http.Client

	// BatchSize, FlushInterval, Capacity, OverflowPolicy, BlockTimeout
	// and MaxRate configure the batching worker; see handler.BatchConfig.
	BatchSize      int
	FlushInterval  time.Duration
	Capacity       int
	OverflowPolicy map[core.Level]handler.OverflowPolicy
	BlockTimeout   time.Duration
	MaxRate        int

	// GlobalContext is merged into every payload object. Context, when
	// set, is called per batch and its result merged on top.
	GlobalContext map[string]interface{}
	Context       func() map[string]interface{}

	// Transform rewrites a batch's payload objects before the request.
	// Returning an error drops the batch after reporting it.
	Transform func(batch []map[string]interface{}) ([]map[string]interface{}, error)

	// ErrorCallback receives delivery errors; without it they go to
	// stderr. Errors never reach the logging caller.
	ErrorCallback func(error)
}

// Handler posts batches of records to a single HTTP endpoint.
type Handler struct {
	handler.Base

	cfg     Config
	client  *http.Client
	batcher *handler.Batcher
}

// New validates the endpoint and starts the batching worker.
func New(cfg Config) (*Handler, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("http handler url %q: %w", cfg.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http handler url %q: scheme must be http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("http handler url %q: missing host", cfg.URL)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	h := &Handler{
		cfg:    cfg,
		client: client,
	}
	h.batcher = handler.NewBatcher(handler.BatchConfig{
		BatchSize:      cfg.BatchSize,
		FlushInterval:  cfg.FlushInterval,
		Capacity:       cfg.Capacity,
		OverflowPolicy: cfg.OverflowPolicy,
		BlockTimeout:   cfg.BlockTimeout,
		MaxRate:        cfg.MaxRate,
		ErrorCallback:  cfg.ErrorCallback,
	}, h.send)
	return h, nil
}

// Stats returns the batching worker's counters.
func (h *Handler) Stats() *handler.Stats {
	return h.batcher.Stats()
}

// Emit enqueues the record without blocking on the network. Records at
// or above the flush level additionally nudge the worker to send early.
func (h *Handler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}
	h.batcher.Enqueue(record)
	if record.Level >= h.FlushLevel() {
		h.batcher.RequestFlush()
	}
}

// Flush blocks until every previously accepted record has been posted.
func (h *Handler) Flush() error {
	return h.batcher.Flush()
}

// Close sends the remaining records and stops the worker.
func (h *Handler) Close() error {
	return h.batcher.Close()
}

// send runs on the worker goroutine.
func (h *Handler) send(batch []*core.Record) {
	payload := make([]map[string]interface{}, 0, len(batch))

	var dynamic map[string]interface{}
	if h.cfg.Context != nil {
		dynamic = h.cfg.Context()
	}

	for _, rec := range batch {
		obj := recordObject(rec)
		for k, v := range h.cfg.GlobalContext {
			obj[k] = v
		}
		for k, v := range dynamic {
			obj[k] = v
		}
		payload = append(payload, obj)
	}

	if h.cfg.Transform != nil {
		transformed, err := h.cfg.Transform(payload)
		if err != nil {
			h.reportError(fmt.Errorf("transform batch: %w", err))
			return
		}
		payload = transformed
	}
	if len(payload) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.reportError(fmt.Errorf("encode batch: %w", err))
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		h.reportError(fmt.Errorf("build request: %w", err))
		return
	}
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.reportError(fmt.Errorf("post batch to %s: %w", h.cfg.URL, err))
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.reportError(fmt.Errorf("post batch to %s: status %s", h.cfg.URL, resp.Status))
	}
}

func (h *Handler) reportError(err error) {
	if h.cfg.ErrorCallback != nil {
		h.cfg.ErrorCallback(err)
		return
	}
	fmt.Fprintf(os.Stderr, "cascade: %v\n", err)
}

// recordObject flattens one record into the wire shape.
func recordObject(rec *core.Record) map[string]interface{} {
	obj := map[string]interface{}{
		"name":      rec.Name,
		"levelno":   int(rec.Level),
		"levelname": rec.Level.String(),
		"message":   rec.Message(),
		"created":   rec.Created(),
		"msecs":     rec.Msecs(),
		"pathname":  rec.Caller.File,
		"filename":  rec.Caller.ShortFile,
		"lineno":    rec.Caller.Line,
		"funcName":  rec.Caller.Function,
		"module":    rec.Caller.Module,
		"process":   rec.Process,
		"thread":    rec.Goroutine,
	}
	if rec.GoroutineName != "" {
		obj["threadName"] = rec.GoroutineName
	}
	if text := rec.ErrText(); text != "" {
		obj["exc_text"] = text
	}
	for _, f := range rec.Extra {
		obj[f.Key] = f.Value()
	}
	return obj
}
