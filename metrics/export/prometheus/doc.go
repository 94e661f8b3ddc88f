// Package prometheus renders careauth metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads an engine snapshot on every scrape. Counter
// names are careauth_*_total; latency histograms are careauth_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
