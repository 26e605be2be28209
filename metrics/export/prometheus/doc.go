// Package prometheus exposes goAccount counters and latency histograms as a
// client_golang collector.
//
// [NewPrometheusExporter] wraps an Engine. Mount [PrometheusExporter.Handler]
// directly, or register [PrometheusExporter.Collector] on a registry of your
// own. Counter names follow goaccount_*_total; the latency histograms are
// goaccount_login_latency_seconds and goaccount_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry.
//   - Mutate engine state.
package prometheus
