// Package otel publishes goCaptcha engine metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and an
// Int64ObservableGauge per latency bucket. A single callback reads
// [goCaptcha.Engine.MetricsSnapshot] on each collection cycle. Pair the Meter with any
// reader; captchad uses the OTel Prometheus exporter.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
