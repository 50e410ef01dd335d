// Package observability provides the shared logging, metrics, and
// tracing plumbing for veritls.
//
// Logging is structured (zap) behind a small Logger interface so
// packages can accept a logger without depending on zap directly.
// Metrics are Prometheus collectors on a private registry exposed via
// promhttp. Tracing is OpenTelemetry with an optional OTLP/gRPC
// exporter; when disabled, spans are no-ops.
package observability
