package otlphandler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/protobuf/proto"

	"github.com/cascadelog/cascade/core"
	"github.com/cascadelog/cascade/handler"
)

const scopeName = "cascade"

// Config configures an OTLP handler. URL is the collector's logs
// endpoint (typically http://host:4318/v1/logs) and is required.
type Config struct {
	URL string
	// ServiceName becomes the service.name resource attribute
	// (default "unknown_service").
	ServiceName string
	// Headers are added to every request, e.g. collector auth.
	Headers map[string]string
	// Timeout bounds each request (default 30s). Ignored when Client
	// is set.
	Timeout time.Duration
	Client  *http.Client

	// Batching knobs; see handler.BatchConfig.
	BatchSize      int
	FlushInterval  time.Duration
	Capacity       int
	OverflowPolicy map[core.Level]handler.OverflowPolicy
	BlockTimeout   time.Duration
	MaxRate        int

	// ResourceAttributes are added next to service.name.
	ResourceAttributes map[string]string

	// ErrorCallback receives delivery errors; without it they go to
	// stderr.
	ErrorCallback func(error)
}

// Handler exports records to an OTLP/HTTP collector.
type Handler struct {
	handler.Base

	cfg      Config
	client   *http.Client
	batcher  *handler.Batcher
	resource *resourcepb.Resource
}

// New validates the endpoint and starts the batching worker.
func New(cfg Config) (*Handler, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("otlp endpoint %q: %w", cfg.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("otlp endpoint %q: scheme must be http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("otlp endpoint %q: missing host", cfg.URL)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "unknown_service"
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	attrs := []*commonpb.KeyValue{stringAttr("service.name", cfg.ServiceName)}
	for k, v := range cfg.ResourceAttributes {
		attrs = append(attrs, stringAttr(k, v))
	}

	h := &Handler{
		cfg:      cfg,
		client:   client,
		resource: &resourcepb.Resource{Attributes: attrs},
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

// Emit enqueues the record for export.
func (h *Handler) Emit(record *core.Record) {
	if !h.Accepts(record) {
		return
	}
	h.batcher.Enqueue(record)
	if record.Level >= h.FlushLevel() {
		h.batcher.RequestFlush()
	}
}

// Flush blocks until every previously accepted record was exported.
func (h *Handler) Flush() error {
	return h.batcher.Flush()
}

// Close exports the remaining records and stops the worker.
func (h *Handler) Close() error {
	return h.batcher.Close()
}

// send runs on the worker goroutine.
func (h *Handler) send(batch []*core.Record) {
	logs := make([]*logspb.LogRecord, 0, len(batch))
	for _, rec := range batch {
		logs = append(logs, toLogRecord(rec))
	}

	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			Resource: h.resource,
			ScopeLogs: []*logspb.ScopeLogs{{
				Scope:      &commonpb.InstrumentationScope{Name: scopeName},
				LogRecords: logs,
			}},
		}},
	}

	body, err := proto.Marshal(req)
	if err != nil {
		h.reportError(fmt.Errorf("encode otlp batch: %w", err))
		return
	}

	httpReq, err := http.NewRequest(http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		h.reportError(fmt.Errorf("build otlp request: %w", err))
		return
	}
	for k, v := range h.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		h.reportError(fmt.Errorf("export to %s: %w", h.cfg.URL, err))
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.reportError(fmt.Errorf("export to %s: status %s", h.cfg.URL, resp.Status))
	}
}

func (h *Handler) reportError(err error) {
	if h.cfg.ErrorCallback != nil {
		h.cfg.ErrorCallback(err)
		return
	}
	fmt.Fprintf(os.Stderr, "cascade: %v\n", err)
}

// toLogRecord converts one record to its OTLP shape.
func toLogRecord(rec *core.Record) *logspb.LogRecord {
	attrs := []*commonpb.KeyValue{
		stringAttr("logger.name", rec.Name),
		stringAttr("code.filepath", rec.Caller.File),
		intAttr("code.lineno", int64(rec.Caller.Line)),
		stringAttr("code.function", rec.Caller.Function),
		intAttr("thread.id", int64(rec.Goroutine)),
	}
	if text := rec.ErrText(); text != "" {
		attrs = append(attrs, stringAttr("exception.message", text))
	}
	for _, f := range rec.Extra {
		attrs = append(attrs, fieldAttr(f))
	}

	return &logspb.LogRecord{
		TimeUnixNano:   uint64(rec.Time.UnixNano()),
		SeverityNumber: severityNumber(rec.Level),
		SeverityText:   rec.Level.String(),
		Body: &commonpb.AnyValue{
			Value: &commonpb.AnyValue_StringValue{StringValue: rec.Message()},
		},
		Attributes: attrs,
	}
}

// severityNumber maps the handler levels onto the OTLP severity scale.
func severityNumber(level core.Level) logspb.SeverityNumber {
	switch {
	case level >= core.CriticalLevel:
		return logspb.SeverityNumber_SEVERITY_NUMBER_FATAL
	case level >= core.ErrorLevel:
		return logspb.SeverityNumber_SEVERITY_NUMBER_ERROR
	case level >= core.WarningLevel:
		return logspb.SeverityNumber_SEVERITY_NUMBER_WARN
	case level >= core.InfoLevel:
		return logspb.SeverityNumber_SEVERITY_NUMBER_INFO
	case level >= core.DebugLevel:
		return logspb.SeverityNumber_SEVERITY_NUMBER_DEBUG
	default:
		return logspb.SeverityNumber_SEVERITY_NUMBER_TRACE
	}
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func intAttr(key string, value int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: value}},
	}
}

// fieldAttr converts a typed field, preserving int, float and bool
// values and falling back to the string rendering for everything else.
func fieldAttr(f core.Field) *commonpb.KeyValue {
	switch f.Type {
	case core.IntType, core.Int64Type:
		return intAttr(f.Key, f.Int64)
	case core.Float64Type:
		return &commonpb.KeyValue{
			Key:   f.Key,
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: f.Float64}},
		}
	case core.BoolType:
		return &commonpb.KeyValue{
			Key:   f.Key,
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: f.Int64 != 0}},
		}
	default:
		return stringAttr(f.Key, f.StringValue())
	}
}
