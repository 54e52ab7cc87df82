// Package otel provides OpenTelemetry metric exporter bindings for mailauth
// counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter instrument for each
// mailauth metric. A single callback reads [mailauth.Engine.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
