// Package otlphandler exports log records to an OpenTelemetry
// collector over OTLP/HTTP. Batches are encoded as protobuf
// ExportLogsServiceRequest messages and posted by a background worker.
package otlphandler
