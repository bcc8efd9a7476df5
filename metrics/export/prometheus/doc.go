// Package prometheus exposes goCaptcha engine metrics through
// github.com/prometheus/client_golang.
//
// [Collector] implements prometheus.Collector and reads [goCaptcha.Engine.MetricsSnapshot]
// on every scrape. Counter names are gocaptcha_*_total; the single histogram is
// gocaptcha_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     Collector or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
