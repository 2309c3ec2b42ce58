// Package otel publishes glazeAuth client metrics through OpenTelemetry.
//
// [NewOTelExporter] groups the client's counters into attribute-keyed
// instruments: glazeauth.requests{outcome}, glazeauth.logins{result},
// glazeauth.session.events{event}, glazeauth.refreshes{result},
// glazeauth.binds{result} and glazeauth.bind_offers. Request latency is one
// gauge of cumulative counts keyed by "le". A single callback reads
// [glazeAuth.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
