// Package prometheus exposes glazeAuth client metrics through
// prometheus/client_golang.
//
// [PrometheusExporter] is a [prometheus.Collector]: register it in any
// registry, or mount [PrometheusExporter.Handler] which serves it from a
// private one. Counter names are glazeauth_*_total; the single histogram is
// glazeauth_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
